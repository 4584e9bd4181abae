// Package responder drives the end-to-end handling of one received modmail
// message: dedupe, conversation context assembly, rule filtering and
// evaluation, placeholder expansion, and finally applying the matched rule's
// actions to the conversation.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/modmailer/modmailer/internal/eval"
	"github.com/modmailer/modmailer/internal/host"
	"github.com/modmailer/modmailer/internal/reply"
	"github.com/modmailer/modmailer/internal/rules"
	"github.com/modmailer/modmailer/internal/settings"
	"github.com/modmailer/modmailer/internal/store"
)

// Action is the fully rendered outcome of a matched rule, ready to apply to
// a conversation. It serializes to JSON so delayed actions survive a
// scheduler round-trip.
type Action struct {
	ConversationID string             `json:"conversation_id"`
	Username       string             `json:"username"`
	Reply          string             `json:"reply,omitempty"`
	PrivateReply   string             `json:"private_reply,omitempty"`
	MuteDays       int                `json:"mute_days,omitempty"`
	Archive        bool               `json:"archive,omitempty"`
	Unban          bool               `json:"unban,omitempty"`
	ApproveUser    bool               `json:"approve_user,omitempty"`
	SetFlair       *rules.FlairChange `json:"set_flair,omitempty"`
}

// Scheduler defers an action to a later instant. Implementations must
// eventually call Responder.Apply with the stored action.
type Scheduler interface {
	Schedule(ctx context.Context, runAt time.Time, action Action) error
}

// Responder wires the rule engine to a moderation host for one subreddit.
type Responder struct {
	Client    host.Client
	Modmail   host.ModmailClient
	Dedupe    store.Store
	Settings  settings.Settings
	Rules     []rules.Rule
	Scheduler Scheduler
	Audit     *AuditLogger
	Logger    *slog.Logger

	// AppName is this responder's own account name; its messages never
	// trigger rules.
	AppName string
}

// New builds a Responder from loaded settings, with the dedupe store chosen
// by the settings' redis address.
func New(cfg settings.Settings, client host.Client, modmail host.ModmailClient, ruleList []rules.Rule, logger *slog.Logger) *Responder {
	return &Responder{
		Client:   client,
		Modmail:  modmail,
		Dedupe:   store.ForAddr(cfg.RedisAddr),
		Settings: cfg,
		Rules:    ruleList,
		Logger:   logger,
	}
}

func (r *Responder) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// HandleMessage processes one received modmail event end to end. Events that
// do not lead to an action (duplicates, self-triggered messages,
// conversations without a participant, no eligible or matching rule) return
// nil.
func (r *Responder) HandleMessage(ctx context.Context, event host.ModmailEvent) error {
	started := time.Now()
	defer func() { eventProcessDuration.Observe(time.Since(started).Seconds()) }()

	log := r.logger().With("conversation", event.ConversationID, "message", event.MessageID)

	if event.AuthorName == "" {
		eventProcessCount.WithLabelValues("no_author").Inc()
		return nil
	}
	if event.AuthorName == r.AppName {
		log.Debug("event triggered by this app, skipping")
		eventProcessCount.WithLabelValues("self").Inc()
		return nil
	}

	alreadySeen, err := r.Dedupe.MarkProcessed(ctx, event.MessageID, store.DefaultTTL)
	if err != nil {
		return fmt.Errorf("dedupe check: %w", err)
	}
	if alreadySeen {
		log.Debug("message already processed, skipping")
		eventProcessCount.WithLabelValues("duplicate").Inc()
		return nil
	}

	conv, err := r.Modmail.Conversation(ctx, event.ConversationID)
	if err != nil {
		return fmt.Errorf("fetching conversation: %w", err)
	}
	if conv.Participant == "" {
		log.Debug("conversation has no participant, e.g. internal mod discussion")
		eventProcessCount.WithLabelValues("no_participant").Inc()
		return nil
	}
	if len(conv.Messages) == 0 {
		return nil
	}

	first := conv.Messages[0]
	isFirstMessage := strings.Contains(event.MessageID, first.ID)

	current, ok := findMessage(conv.Messages, event.MessageID)
	if !ok {
		log.Warn("cannot find current message in conversation")
		eventProcessCount.WithLabelValues("message_missing").Inc()
		return nil
	}

	isFirstUserReply := !isFirstMessage && current.ID == firstUserReplyID(conv.Messages, first.ID, conv.Participant)

	client := newCachingClient(r.Client)

	isMod := false
	if current.Author != "" {
		isMod, err = client.IsModerator(ctx, r.Settings.Subreddit, current.Author)
		if err != nil {
			log.Warn("moderator lookup failed", "user", current.Author, "err", err)
			isMod = false
		}
	}

	eligible := eligibleRules(r.Rules, isFirstMessage, isFirstUserReply, isMod, current.AuthorIsParticipant)
	if len(eligible) == 0 {
		log.Debug("no eligible rules for a message in this state")
		eventProcessCount.WithLabelValues("no_eligible_rules").Inc()
		return nil
	}

	participant, err := client.UserByUsername(ctx, conv.Participant)
	if err != nil {
		// Shadowbanned and suspended users have no resolvable profile.
		log.Debug("participant profile unavailable", "user", conv.Participant, "err", err)
		participant = nil
	}

	in := eval.Input{
		Subreddit:         r.Settings.Subreddit,
		Subject:           conv.Subject,
		Body:              current.Body,
		Username:          conv.Participant,
		Author:            participant,
		AuthorIsModerator: isMod,
		AuthorIsAdmin:     current.AuthorIsAdmin,
	}

	evaluator := &eval.Evaluator{Client: client, Logger: r.Logger}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority > eligible[j].Priority
	})

	var processed []*eval.MatchContext
	var matched *eval.MatchContext
	for i := range eligible {
		result, err := evaluator.CheckRule(ctx, &eligible[i], in)
		if err != nil {
			return fmt.Errorf("checking rule: %w", err)
		}
		processed = append(processed, result)
		if result.Matched {
			matched = result
			break
		}
	}

	if report := debugReport(processed); report != "" {
		if err := r.Modmail.Reply(ctx, conv.ID, report, true, false); err != nil {
			log.Warn("posting debug report failed", "err", err)
		}
	}

	if matched == nil {
		log.Info("no rules matched")
		eventProcessCount.WithLabelValues("no_match").Inc()
		r.audit(event, conv, "no_match", nil, nil)
		return nil
	}

	log.Info("rule matched", "priority", matched.Priority)
	ruleMatchCount.Inc()
	eventProcessCount.WithLabelValues("matched").Inc()

	action := r.buildAction(conv, matched, isMod)
	r.audit(event, conv, "matched", matched, &action)

	if delay := r.Settings.SecondsDelayBeforeSend; delay > 0 && r.Scheduler != nil {
		log.Info("delaying action", "seconds", delay)
		return r.Scheduler.Schedule(ctx, time.Now().Add(time.Duration(delay)*time.Second), action)
	}
	return r.Apply(ctx, action)
}

// buildAction renders the matched rule's payload into a concrete action:
// placeholders expanded, signoff appended where configured.
func (r *Responder) buildAction(conv *host.Conversation, matched *eval.MatchContext, triggeredByMod bool) Action {
	action := Action{
		ConversationID: conv.ID,
		Username:       conv.Participant,
		MuteDays:       matched.Mute,
		Archive:        matched.Archive,
		Unban:          matched.Unban,
		ApproveUser:    matched.ApproveUser,
	}

	opts := reply.Options{
		Username:    conv.Participant,
		Subreddit:   r.Settings.Subreddit,
		Language:    r.Settings.Language(),
		PostWord:    r.Settings.PostString,
		CommentWord: r.Settings.CommentString,
	}

	if matched.SetFlair != nil {
		flair := *matched.SetFlair
		flair.SetFlairText = reply.Render(flair.SetFlairText, matched, opts)
		action.SetFlair = &flair
	}

	if matched.Reply != "" {
		text := reply.Render(matched.Reply, matched, opts)
		signoff := r.Settings.Signoff
		if signoff != "" && matched.IncludeSignoff && (!triggeredByMod || r.Settings.IncludeSignoffForMods) {
			text += "\n\n" + signoff
		}
		action.Reply = text
	}

	if matched.PrivateReply != "" {
		action.PrivateReply = reply.Render(matched.PrivateReply, matched, opts)
	}

	return action
}

// Apply performs every part of an action against the host, in a fixed order:
// public reply, private reply, mute, archive, then the user-level actions.
func (r *Responder) Apply(ctx context.Context, action Action) error {
	log := r.logger().With("conversation", action.ConversationID)

	if action.Reply != "" {
		if err := r.Modmail.Reply(ctx, action.ConversationID, action.Reply, false, true); err != nil {
			actionErrorCount.WithLabelValues("reply").Inc()
			return fmt.Errorf("replying: %w", err)
		}
		actionCount.WithLabelValues("reply").Inc()
		log.Info("replied to modmail")
	}

	if action.PrivateReply != "" {
		if err := r.Modmail.Reply(ctx, action.ConversationID, action.PrivateReply, true, false); err != nil {
			actionErrorCount.WithLabelValues("private_reply").Inc()
			return fmt.Errorf("replying privately: %w", err)
		}
		actionCount.WithLabelValues("private_reply").Inc()
		log.Info("added private mod note")
	}

	if action.MuteDays > 0 {
		// The host only accepts these three mute lengths.
		hours := action.MuteDays * 24
		if hours == 72 || hours == 168 || hours == 672 {
			if err := r.Modmail.MuteConversation(ctx, action.ConversationID, hours); err != nil {
				actionErrorCount.WithLabelValues("mute").Inc()
				return fmt.Errorf("muting: %w", err)
			}
			actionCount.WithLabelValues("mute").Inc()
			log.Info("user muted", "hours", hours)
		}
	}

	if action.Archive {
		if err := r.Modmail.ArchiveConversation(ctx, action.ConversationID); err != nil {
			actionErrorCount.WithLabelValues("archive").Inc()
			return fmt.Errorf("archiving: %w", err)
		}
		actionCount.WithLabelValues("archive").Inc()
		log.Info("conversation archived")
	}

	if action.Unban {
		if err := r.Modmail.UnbanUser(ctx, r.Settings.Subreddit, action.Username); err != nil {
			actionErrorCount.WithLabelValues("unban").Inc()
			return fmt.Errorf("unbanning: %w", err)
		}
		actionCount.WithLabelValues("unban").Inc()
		log.Info("user unbanned")
	}

	if action.ApproveUser {
		if err := r.Modmail.ApproveUser(ctx, r.Settings.Subreddit, action.Username); err != nil {
			actionErrorCount.WithLabelValues("approve_user").Inc()
			return fmt.Errorf("approving user: %w", err)
		}
		actionCount.WithLabelValues("approve_user").Inc()
		log.Info("user added as approved user")
	}

	if action.SetFlair != nil {
		if err := r.applyFlair(ctx, action); err != nil {
			actionErrorCount.WithLabelValues("set_flair").Inc()
			return err
		}
	}

	return nil
}

// applyFlair sets the participant's flair. Unless the rule overrides, an
// existing flair is left untouched.
func (r *Responder) applyFlair(ctx context.Context, action Action) error {
	log := r.logger().With("conversation", action.ConversationID)

	if !action.SetFlair.OverrideFlair {
		user, err := r.Client.UserByUsername(ctx, action.Username)
		if err != nil || user == nil {
			log.Info("cannot verify existing flair, not setting flair")
			return nil
		}
		current, err := r.Client.UserFlair(ctx, r.Settings.Subreddit, action.Username)
		if err != nil {
			return fmt.Errorf("fetching current flair: %w", err)
		}
		if current != nil && current.Text != "" {
			log.Info("user already has a flair, not setting")
			return nil
		}
	}

	update := host.FlairUpdate{
		Text:       action.SetFlair.SetFlairText,
		CSSClass:   action.SetFlair.SetFlairCSSClass,
		TemplateID: action.SetFlair.SetFlairTemplateID,
	}
	if err := r.Modmail.SetUserFlair(ctx, r.Settings.Subreddit, action.Username, update); err != nil {
		return fmt.Errorf("setting flair: %w", err)
	}
	actionCount.WithLabelValues("set_flair").Inc()
	log.Info("new flair set")
	return nil
}

func (r *Responder) audit(event host.ModmailEvent, conv *host.Conversation, outcome string, matched *eval.MatchContext, action *Action) {
	auditEvent := AuditEvent{
		ConversationID: event.ConversationID,
		MessageID:      event.MessageID,
		Username:       conv.Participant,
		Outcome:        outcome,
	}
	if matched != nil {
		auditEvent.RuleName = matched.FriendlyName
		auditEvent.Priority = matched.Priority
	}
	if action != nil {
		auditEvent.Actions = actionNames(*action)
	}
	if err := r.Audit.Log(auditEvent); err != nil {
		r.logger().Warn("audit log write failed", "err", err)
	}
}

func actionNames(action Action) []string {
	var names []string
	if action.Reply != "" {
		names = append(names, "reply")
	}
	if action.PrivateReply != "" {
		names = append(names, "private_reply")
	}
	if action.MuteDays > 0 {
		names = append(names, "mute")
	}
	if action.Archive {
		names = append(names, "archive")
	}
	if action.Unban {
		names = append(names, "unban")
	}
	if action.ApproveUser {
		names = append(names, "approve_user")
	}
	if action.SetFlair != nil {
		names = append(names, "set_flair")
	}
	return names
}

func findMessage(messages []host.ConversationMessage, eventMessageID string) (host.ConversationMessage, bool) {
	for _, m := range messages {
		if m.ID != "" && strings.Contains(eventMessageID, m.ID) {
			return m, true
		}
	}
	return host.ConversationMessage{}, false
}

// firstUserReplyID returns the id of the earliest non-first message authored
// by the participant, or "" when the participant never replied.
func firstUserReplyID(messages []host.ConversationMessage, firstID, participant string) string {
	for _, m := range messages {
		if m.ID != firstID && m.Author == participant {
			return m.ID
		}
	}
	return ""
}

// eligibleRules narrows the rule list down to those applicable to the
// message's position in the conversation and its author's role.
func eligibleRules(all []rules.Rule, isFirstMessage, isFirstUserReply, authorIsMod, authorIsParticipant bool) []rules.Rule {
	var out []rules.Rule
	for _, rule := range all {
		if isFirstMessage {
			if boolIs(rule.IsReply, true) || boolIs(rule.IsFirstUserReply, true) {
				continue
			}
		} else {
			if rule.IsReply != nil {
				if !*rule.IsReply {
					continue
				}
			} else if !(boolIs(rule.IsFirstUserReply, true) && isFirstUserReply) {
				continue
			}
		}

		if rule.Author != nil {
			if boolIs(rule.Author.IsModerator, true) && !authorIsMod {
				continue
			}
			if rule.Author.IsParticipant != nil && *rule.Author.IsParticipant != authorIsParticipant {
				continue
			}
		}

		out = append(out, rule)
	}
	return out
}

func boolIs(b *bool, want bool) bool {
	return b != nil && *b == want
}

// debugReport renders the verbose traces of the processed rules as markdown
// for an internal mod-only note. Rules without verbose logging contribute
// nothing; an empty report suppresses the note entirely.
func debugReport(processed []*eval.MatchContext) string {
	var withLogs []*eval.MatchContext
	for _, p := range processed {
		if len(p.VerboseLogs) > 0 {
			withLogs = append(withLogs, p)
		}
	}
	if len(withLogs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Modmail Automator logs\n")
	for _, p := range withLogs {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "Priority: %d\n\n", p.Priority)
		fmt.Fprintf(&b, "Rule matched: %t\n\n", p.Matched)
		for _, line := range p.VerboseLogs {
			fmt.Fprintf(&b, " - %s\n", line)
		}

		if p.Matched {
			b.WriteString("\nActions to take if this is the highest priority match:\n\n")
			if p.Reply != "" {
				b.WriteString(" - Reply to user\n")
			}
			if p.PrivateReply != "" {
				b.WriteString(" - Make a private mod note\n")
			}
			if p.Archive {
				b.WriteString(" - Archive message\n")
			}
			if p.Mute > 0 {
				fmt.Fprintf(&b, " - Mute for %s\n", muteLength(p.Mute))
			}
			if p.Unban {
				b.WriteString(" - Unban user\n")
			}
			if p.SetFlair != nil {
				b.WriteString(" - Set flair\n")
			}
		}
	}
	return b.String()
}

func muteLength(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
