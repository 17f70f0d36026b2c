// Package pattern accumulates per-domain signal outcomes and returns a
// consolidated Bundle from Observe once enough high-quality evidence has
// accrued; it does not broadcast the bundle itself. Thresholds follow spec
// §6's pattern_bundle_threshold/min_success_rate_for_bundle config keys and
// §4.10's CanPropagateLearning gate.
package pattern

import (
	"sync"

	"github.com/swarmcore/governance/tstate"
)

// Bundle is a consolidated summary of one domain's recent signal outcomes.
type Bundle struct {
	Domain      string
	Attempts    int
	Successes   int
	SuccessRate float64
}

type domainStats struct {
	attempts  int
	successes int
	emitted   bool
}

// Emitter tracks outcomes per domain and decides when to emit a bundle.
type Emitter struct {
	mu        sync.Mutex
	tstate    *tstate.Manager
	threshold int
	minRate   float64
	domains   map[string]*domainStats
}

// NewEmitter returns an Emitter using ts to gate emission by T-state.
func NewEmitter(ts *tstate.Manager, threshold int, minRate float64) *Emitter {
	return &Emitter{
		tstate:    ts,
		threshold: threshold,
		minRate:   minRate,
		domains:   make(map[string]*domainStats),
	}
}

// Observe records one outcome for domain, returning a Bundle and true if the
// accumulated evidence now clears the threshold, quality gate, and T-state
// gate — and has not already been emitted for this accumulation window.
func (e *Emitter) Observe(domain string, success bool) (Bundle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.domains[domain]
	if !ok {
		d = &domainStats{}
		e.domains[domain] = d
	}
	d.attempts++
	if success {
		d.successes++
	}

	if d.emitted || d.attempts < e.threshold {
		return Bundle{}, false
	}
	rate := float64(d.successes) / float64(d.attempts)
	if rate < e.minRate {
		return Bundle{}, false
	}
	if e.tstate != nil && !e.tstate.Current().CanPropagateLearning() {
		return Bundle{}, false
	}

	d.emitted = true
	return Bundle{Domain: domain, Attempts: d.attempts, Successes: d.successes, SuccessRate: rate}, true
}

// Reset clears domain's accumulated stats, allowing a fresh accumulation
// window (and a future emission) to begin.
func (e *Emitter) Reset(domain string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.domains, domain)
}
