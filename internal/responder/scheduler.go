package responder

import (
	"context"
	"log/slog"
	"time"
)

// TimerScheduler runs delayed actions on in-process timers. Pending actions
// do not survive a restart; deployments that need durable delays should back
// Scheduler with a real job queue.
type TimerScheduler struct {
	Responder *Responder
	Logger    *slog.Logger
}

func (s *TimerScheduler) Schedule(_ context.Context, runAt time.Time, action Action) error {
	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		if err := s.Responder.Apply(context.Background(), action); err != nil {
			log := s.Logger
			if log == nil {
				log = slog.Default()
			}
			log.Error("delayed action failed", "conversation", action.ConversationID, "err", err)
		}
	})
	return nil
}
