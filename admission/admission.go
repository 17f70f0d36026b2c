// Package admission implements the single gate membership consults before
// re-admitting a returning peer, per spec §4.8's invariant: a peer with more
// than three recorded violations is permanently denied.
package admission

import (
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/reputation"
)

// Controller decides whether a returning peer may rejoin.
type Controller struct {
	reputation *reputation.Tracker
}

// NewController returns a Controller backed by rep.
func NewController(rep *reputation.Tracker) *Controller {
	return &Controller{reputation: rep}
}

// Admit reports whether peer may be (re)admitted.
func (c *Controller) Admit(peer identity.PeerId) bool {
	if c.reputation == nil {
		return true
	}
	return c.reputation.CanAdmit(peer)
}
