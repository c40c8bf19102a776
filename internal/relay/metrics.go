package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authorization flows as they pass through the relay.
type Metrics struct {
	FlowsStarted    prometheus.Counter
	ConsentSkipped  prometheus.Counter
	ConsentApproved prometheus.Counter
	ConsentDenied   prometheus.Counter
	FlowsCompleted  prometheus.Counter
	FlowsFailed     *prometheus.CounterVec
}

// NewMetrics registers the relay counters with reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FlowsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "authrelay_flows_started_total",
			Help: "Authorization requests received on /authorize.",
		}),
		ConsentSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "authrelay_consent_skipped_total",
			Help: "Flows that bypassed the consent dialog via a prior-approval cookie.",
		}),
		ConsentApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "authrelay_consent_approved_total",
			Help: "Consent dialog submissions that approved the client.",
		}),
		ConsentDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "authrelay_consent_denied_total",
			Help: "Consent dialog submissions that denied the client.",
		}),
		FlowsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "authrelay_flows_completed_total",
			Help: "Flows that finished with a downstream authorization code issued.",
		}),
		FlowsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authrelay_flows_failed_total",
			Help: "Flows that terminated with an error, by stage.",
		}, []string{"stage"}),
	}
}

// Failure stages recorded on FlowsFailed.
const (
	StageAuthorize = "authorize"
	StageState     = "state"
	StageCallback  = "callback"
	StageExchange  = "exchange"
	StageIdentity  = "identity"
	StageGrant     = "grant"
)
