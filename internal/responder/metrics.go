package responder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "modmailer_event_duration_sec",
	Help: "Total duration of modmail event processing",
})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modmailer_event_processed",
	Help: "Number of modmail events processed",
}, []string{"outcome"})

var ruleMatchCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modmailer_rule_matched",
	Help: "Number of events where a rule matched",
})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modmailer_actions_applied",
	Help: "Number of actions applied to conversations",
}, []string{"action"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modmailer_action_errors",
	Help: "Number of actions which failed to apply",
}, []string{"action"})
