// Package event implements the governance core's internal event bus: a
// typed CoreEvent sum type with single-reducer dispatch. This replaces a
// web of direct component-to-component callbacks with one place incoming
// events flow through, avoiding re-entrant callback cycles between
// components that would otherwise each invoke each other directly.
package event

import "sync"

// Kind names one of the CoreEvent variants.
type Kind string

const (
	KindSignalAccepted     Kind = "signal_accepted"
	KindSignalRejected     Kind = "signal_rejected"
	KindConflictDetected   Kind = "conflict_detected"
	KindConflictResolved   Kind = "conflict_resolved"
	KindArbitrationResolved Kind = "arbitration_resolved"
	KindAuthorityDenied    Kind = "authority_denied"
	KindAuthorityRevoked   Kind = "authority_revoked"
	KindAuthorityExpired   Kind = "authority_expired"
	KindDrift              Kind = "drift"
	KindQuarantined        Kind = "quarantined"
	KindPatternBundle      Kind = "pattern_bundle"
)

// CoreEvent is the single sum type every subsystem emits into the bus.
// Data carries the payload for Kind.
type CoreEvent struct {
	Kind Kind
	Data interface{}
}

// Handler processes one CoreEvent. Handlers run synchronously in
// subscription order on the goroutine that calls Publish.
type Handler func(CoreEvent)

// Bus dispatches CoreEvents to subscribed handlers. The lock guards only the
// handler table; handlers run without it, so a handler may call Publish
// again, and nothing prevents such recursive re-entry.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h to run for every future event of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish dispatches ev to every handler subscribed to its kind, in
// subscription order.
func (b *Bus) Publish(ev CoreEvent) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
