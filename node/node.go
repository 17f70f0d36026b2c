// Package node is the composition root: it owns one instance of every
// governance-core component and drives the periodic tick loop spec §2
// describes, wiring the cross-component consequences (authority revoke ->
// quarantine + reputation violation, drift -> authority revoke) that would
// otherwise be a tangle of direct callbacks between packages.
package node

import (
	"context"
	"encoding/json"
	"time"

	"github.com/swarmcore/governance/admission"
	"github.com/swarmcore/governance/arbitration"
	"github.com/swarmcore/governance/audit"
	"github.com/swarmcore/governance/authority"
	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/checkpoint"
	"github.com/swarmcore/governance/clock"
	"github.com/swarmcore/governance/conflict"
	"github.com/swarmcore/governance/config"
	"github.com/swarmcore/governance/corelog"
	"github.com/swarmcore/governance/coremetrics"
	"github.com/swarmcore/governance/drift"
	"github.com/swarmcore/governance/event"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/membership"
	"github.com/swarmcore/governance/pattern"
	"github.com/swarmcore/governance/propagation"
	"github.com/swarmcore/governance/quarantine"
	"github.com/swarmcore/governance/reputation"
	"github.com/swarmcore/governance/rollback"
	"github.com/swarmcore/governance/signal"
	"github.com/swarmcore/governance/transport"
	"github.com/swarmcore/governance/tstate"
)

// Node bundles every governance-core component for a single peer.
type Node struct {
	Self      identity.PeerId
	Config    config.Config
	Clock     clock.Clock
	Log       corelog.Logger
	Transport transport.Transport

	Events *event.Bus

	Beliefs     *belief.Store
	Quarantine  *quarantine.Manager
	Reputation  *reputation.Tracker
	Admission   *admission.Controller
	TState      *tstate.Manager
	Authority   *authority.Manager
	Drift       *drift.Detector
	Membership  *membership.Manager
	Propagation *propagation.Manager
	Conflict    *conflict.Accumulator
	Checkpoint  *checkpoint.Manager
	Arbitration *arbitration.Manager
	Pattern     *pattern.Emitter
	Audit       *audit.Log
	Rollback    *rollback.Ring

	driftCfg drift.Config
}

// New constructs a fully wired Node for self, talking over tr, observing
// cfg's tunables, and recording metrics (optional, may be nil) and audit
// entries through clk. logger defaults to corelog.NoOp() if nil.
func New(self identity.PeerId, tr transport.Transport, cfg config.Config, clk clock.Clock, metrics *coremetrics.Metrics, logger corelog.Logger) *Node {
	if clk == nil {
		clk = clock.Real{}
	}
	logger = corelog.OrNoOp(logger)

	beliefs := belief.NewStore()
	q := quarantine.NewManager(time.Second, clk)
	rep := reputation.NewTracker(cfg.NewPeerInfluence, cfg.MinReputationForVote)
	ts := tstate.NewManager(cfg.StaleCommsThreshold)
	auth := authority.NewManager(self, tr, cfg.BaseAuthorityDuration, clk, ts)
	driftCfg := drift.Config{
		HoldDriftThreshold:        cfg.HoldDriftThreshold,
		StaleCommsThreshold:       cfg.StaleCommsThreshold,
		ConfidenceDriftThreshold:  cfg.ConfidenceDriftThresh,
		BeliefDivergenceThreshold: cfg.BeliefDivergenceThresh,
	}
	dr := drift.NewDetector(driftCfg)
	adm := admission.NewController(rep)
	mem := membership.NewManager(self, tr, ts, adm, metrics, cfg.HeartbeatInterval, cfg.PeerTimeout, cfg.MaxPeers)
	conf := conflict.NewAccumulator(cfg.BeliefDivergenceThresh, metrics)
	prop := propagation.NewManager(self, tr, q, rep, metrics, cfg.MaxSeenSignals)
	chk := checkpoint.NewManager(self, tr, beliefs, conf, cfg.PeerTimeout)
	arb := arbitration.NewManager(self, tr, q, rep, conf, metrics, cfg.MinReputationForVote)
	pat := pattern.NewEmitter(ts, cfg.PatternBundleThreshold, cfg.MinSuccessRateForBundle)
	log := audit.NewLog(metrics)
	ring := rollback.NewRing()
	bus := event.NewBus()

	n := &Node{
		Self:        self,
		Config:      cfg,
		Clock:       clk,
		Log:         logger,
		Transport:   tr,
		Events:      bus,
		Beliefs:     beliefs,
		Quarantine:  q,
		Reputation:  rep,
		Admission:   adm,
		TState:      ts,
		Authority:   auth,
		Drift:       dr,
		Membership:  mem,
		Propagation: prop,
		Conflict:    conf,
		Checkpoint:  chk,
		Arbitration: arb,
		Pattern:     pat,
		Audit:       log,
		Rollback:    ring,
		driftCfg:    driftCfg,
	}

	n.wire()
	return n
}

// wire cross-connects component callbacks into the shared event bus so a
// revoked authority quarantines and strikes the target, a detected conflict
// is logged, and accepted signals, outgoing broadcasts, denials,
// revocations, drift and conflicts are appended to the audit log. Rejected
// signals are only published on the bus, and T-state transitions are not
// wired here.
func (n *Node) wire() {
	n.Authority.OnRevoke(func(peer identity.PeerId, reason string) {
		n.Quarantine.Quarantine(peer, reason)
		n.Reputation.RecordViolation(peer, reason)
		n.Events.Publish(event.CoreEvent{Kind: event.KindAuthorityRevoked, Data: peer})
		n.Log.Warnw("authority revoked", "peer", peer, "reason", reason)
		_, _ = n.Audit.Append(audit.KindRevoke, map[string]string{"reason": reason}, &peer, n.Clock.Now())
	})
	n.Authority.OnExpire(func(peer identity.PeerId) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindAuthorityExpired, Data: peer})
		n.Log.Infow("authority window expired", "peer", peer)
	})
	n.Authority.OnDeny(func(peer identity.PeerId, reason string) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindAuthorityDenied, Data: peer})
		n.Log.Infow("authority request denied", "peer", peer, "reason", reason)
		_, _ = n.Audit.Append(audit.KindDeny, map[string]string{"reason": reason}, &peer, n.Clock.Now())
	})

	n.Drift.Subscribe(func(ev drift.Event) {
		n.Authority.Revoke(ev.Peer, string(ev.Reason))
		n.Events.Publish(event.CoreEvent{Kind: event.KindDrift, Data: ev})
		n.Log.Warnw("drift detected", "peer", ev.Peer, "reason", ev.Reason, "details", ev.Details)
		_, _ = n.Audit.Append(audit.KindDrift, ev, &ev.Peer, n.Clock.Now())
	})

	n.Conflict.OnConflictDetected(func(claim string, score float64) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindConflictDetected, Data: claim})
		n.Log.Infow("conflict detected", "claim", claim, "score", score)
		_, _ = n.Audit.Append(audit.KindConflictDetected, map[string]interface{}{
			"claimHash": claim, "score": score,
		}, nil, n.Clock.Now())
	})

	n.Propagation.OnAccepted(func(s signal.Signal, from identity.PeerId) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindSignalAccepted, Data: s})
		_, _ = n.Audit.Append(audit.KindIn, struct {
			Signal signal.Signal `json:"signal"`
		}{s}, &from, n.Clock.Now())
	})
	n.Propagation.OnRejected(func(s signal.Signal, from identity.PeerId, reason string) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindSignalRejected, Data: reason})
	})
	n.Propagation.OnBroadcast(func(s signal.Signal) {
		_, _ = n.Audit.Append(audit.KindOutBroadcast, struct {
			Signal signal.Signal `json:"signal"`
		}{s}, nil, n.Clock.Now())
	})

	n.Arbitration.OnResolved(func(p *arbitration.Proposal) {
		n.Events.Publish(event.CoreEvent{Kind: event.KindArbitrationResolved, Data: p})
	})

	if n.Transport != nil {
		n.Transport.OnMessage(n.Dispatch)
	}
}

// Dispatch demultiplexes one inbound Envelope to the owning component, per
// the wire types in spec §6. It is registered with the transport via
// OnMessage in wire.
func (n *Node) Dispatch(env transport.Envelope) {
	now := n.Clock.Now()

	switch env.Type {
	case transport.TypeHello:
		n.Membership.OnHello(env.From, now)

	case transport.TypeHeartbeat:
		var body transport.HeartbeatBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			n.Membership.OnHeartbeat(env.From, body.Confidence, now)
		}

	case transport.TypePeerList:
		var body transport.PeerListBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			n.Membership.OnPeerList(env.From, body.Peers, now)
		}

	case transport.TypeLearningSignal:
		var body transport.LearningSignalBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			n.Propagation.OnIncoming(body.Signal, env.From)
		}

	case transport.TypeCheckpointReq:
		var body transport.CheckpointReqBody
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return
		}
		resp := n.Checkpoint.OnCheckpointReq(body.ClaimHash, env.From, now)
		if n.Transport == nil {
			return
		}
		respBody, err := json.Marshal(resp)
		if err != nil {
			return
		}
		from := env.From
		_ = n.Transport.Send(from, transport.Envelope{
			Type: transport.TypeCheckpointResp,
			From: n.Self,
			TS:   now.UnixMilli(),
			Body: respBody,
		})
		_, _ = n.Audit.Append(audit.KindOutSend, resp, &from, now)

	case transport.TypeCheckpointResp:
		var body transport.CheckpointRespBody
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return
		}
		for _, id := range n.Checkpoint.PendingIDsForClaim(body.ClaimHash) {
			n.Checkpoint.OnCheckpointResp(id, env.From, belief.Stance(body.Stance), body.Confidence, body.Meaning)
		}

	case transport.TypeArbitrationProposal:
		var body transport.ArbitrationProposalBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			n.Arbitration.OnPropose(body.ProposalID, body.ClaimHash, body.Options)
		}

	case transport.TypeArbitrationVote:
		var body transport.ArbitrationVoteBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			n.Arbitration.OnVote(body.ProposalID, env.From, body.Option, body.Weight)
		}

	case transport.TypeAuthorityRequest:
		var body transport.AuthorityRequestBody
		if err := json.Unmarshal(env.Body, &body); err == nil {
			if req := n.Authority.Request(env.From, body.Scope, body.Reason); req != nil {
				n.Authority.Grant(req.ID)
			}
		}

	case transport.TypeAuthorityGrant, transport.TypeAuthorityDeny, transport.TypeAuthorityRevoke:
		// Informational: the granting node already applied this transition
		// locally and broadcasts it for observability; this node has no
		// independent window to reconcile, so it is only logged and audited.
		from := env.From
		n.Log.Infow("authority notice observed", "type", env.Type, "from", from)
		_, _ = n.Audit.Append(audit.KindIn, map[string]string{"envelopeType": string(env.Type)}, &from, now)
	}
}

// Tick advances every periodic component by one cycle at time now: it
// drives membership's heartbeat/peer-list cadence, re-evaluates the
// T-state ladder, expires lapsed authority windows, and checks every known
// peer for drift.
func (n *Node) Tick(now time.Time) {
	n.Membership.Tick(now)
	n.TState.Update(now)
	n.Authority.CheckExpirations(now)
	n.Checkpoint.Prune(now)

	n.Drift.Check(n.Beliefs.GetConsensus(), now)
}

// Run drives Tick every interval until ctx is cancelled.
func (n *Node) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n.Tick(t)
		}
	}
}

// Snapshot records the current belief set into the rollback ring at time now.
func (n *Node) Snapshot(now time.Time) {
	n.Rollback.Push(belief.Snapshot{Beliefs: n.Beliefs.All()}, now)
}
