package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus metrics.
type Metrics struct {
	SessionsStarted    prometheus.Counter
	GateVerifications  *prometheus.CounterVec
	TokensRevoked      prometheus.Counter
	StageExecutions    *prometheus.CounterVec
	SessionsAborted    prometheus.Counter
	DispatchesTotal    *prometheus.CounterVec
	DispatchDuplicates prometheus.Counter
}

// New creates and registers all process-wide metrics.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careflow_sessions_started_total",
			Help: "Total number of workflow sessions started",
		}),
		GateVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_gate_verifications_total",
			Help: "Identity Gate verification attempts by outcome",
		}, []string{"outcome"}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careflow_gate_tokens_revoked_total",
			Help: "Gate tokens revoked on session termination",
		}),
		StageExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_stage_executions_total",
			Help: "Stage executions by stage name and outcome",
		}, []string{"stage", "outcome"}),
		SessionsAborted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careflow_sessions_aborted_total",
			Help: "Sessions aborted by a safety red flag",
		}),
		DispatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "careflow_dispatches_total",
			Help: "EMR commits and pharmacy dispatches by target",
		}, []string{"target"}),
		DispatchDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careflow_dispatch_duplicates_total",
			Help: "Dispatch attempts rejected by session-id deduplication",
		}),
	}
}
