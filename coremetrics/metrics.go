// Package coremetrics wires the governance core's observable state into
// Prometheus, following the teacher's Averager-over-prometheus.Counter/Gauge
// pattern but registering concrete, named collectors for the quantities the
// spec calls out directly: signals accepted/dropped, conflict scores,
// quarantine population, T-state, authority windows, and audit chain
// length.
package coremetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector a Node exposes. A nil *Metrics is safe to
// use: every method is a no-op on a nil receiver, so components that don't
// care about metrics can skip wiring them up.
type Metrics struct {
	SignalsAccepted  prometheus.Counter
	SignalsDropped   *prometheus.CounterVec // label: reason
	ConflictScore    *prometheus.GaugeVec   // label: claim_hash
	QuarantinedPeers prometheus.Gauge
	TState           prometheus.Gauge // 0..4
	AuthorityWindows prometheus.Gauge
	AuditChainLength prometheus.Counter
	ArbitrationVotes *prometheus.CounterVec // label: option
}

// New creates and registers every collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SignalsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "governance_signals_accepted_total",
			Help: "Total signals accepted by propagation.",
		}),
		SignalsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_signals_dropped_total",
			Help: "Total signals dropped by propagation, by reason.",
		}, []string{"reason"}),
		ConflictScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "governance_conflict_score",
			Help: "Current entropy-based conflict score per claim.",
		}, []string{"claim_hash"}),
		QuarantinedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governance_quarantined_peers",
			Help: "Number of currently quarantined peers.",
		}),
		TState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governance_t_state",
			Help: "Current T-state as an ordinal (T0=0 .. T4=4).",
		}),
		AuthorityWindows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governance_authority_windows_active",
			Help: "Number of currently active authority windows.",
		}),
		AuditChainLength: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "governance_audit_chain_length",
			Help: "Number of entries appended to the audit log.",
		}),
		ArbitrationVotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_arbitration_votes_total",
			Help: "Total resolved arbitrations, by winning option.",
		}, []string{"option"}),
	}
	collectors := []prometheus.Collector{
		m.SignalsAccepted, m.SignalsDropped, m.ConflictScore,
		m.QuarantinedPeers, m.TState, m.AuthorityWindows,
		m.AuditChainLength, m.ArbitrationVotes,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) incSignalsAccepted() {
	if m == nil {
		return
	}
	m.SignalsAccepted.Inc()
}

func (m *Metrics) incSignalsDropped(reason string) {
	if m == nil {
		return
	}
	m.SignalsDropped.WithLabelValues(reason).Inc()
}

// ObserveSignalAccepted records an accepted signal.
func (m *Metrics) ObserveSignalAccepted() { m.incSignalsAccepted() }

// ObserveSignalDropped records a dropped signal with its drop reason.
func (m *Metrics) ObserveSignalDropped(reason string) { m.incSignalsDropped(reason) }

// SetConflictScore records the current conflict score for a claim.
func (m *Metrics) SetConflictScore(claimHash string, score float64) {
	if m == nil {
		return
	}
	m.ConflictScore.WithLabelValues(claimHash).Set(score)
}

// SetQuarantinedPeers records the current quarantine population.
func (m *Metrics) SetQuarantinedPeers(n int) {
	if m == nil {
		return
	}
	m.QuarantinedPeers.Set(float64(n))
}

// SetTState records the current T-state ordinal.
func (m *Metrics) SetTState(ordinal int) {
	if m == nil {
		return
	}
	m.TState.Set(float64(ordinal))
}

// SetAuthorityWindows records the number of currently active windows.
func (m *Metrics) SetAuthorityWindows(n int) {
	if m == nil {
		return
	}
	m.AuthorityWindows.Set(float64(n))
}

// ObserveAuditAppend records one more audit log entry.
func (m *Metrics) ObserveAuditAppend() {
	if m == nil {
		return
	}
	m.AuditChainLength.Inc()
}

// ObserveArbitrationWinner records a resolved arbitration's winning option.
func (m *Metrics) ObserveArbitrationWinner(option string) {
	if m == nil {
		return
	}
	m.ArbitrationVotes.WithLabelValues(option).Inc()
}
