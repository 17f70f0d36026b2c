package membership_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/admission"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/membership"
	"github.com/swarmcore/governance/reputation"
	"github.com/swarmcore/governance/transport"
	"github.com/swarmcore/governance/tstate"
)

type fakeTransport struct {
	id        identity.PeerId
	sent      []transport.Envelope
	broadcast []transport.Envelope
}

func (f *fakeTransport) ID() identity.PeerId { return f.id }
func (f *fakeTransport) Send(to identity.PeerId, env transport.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}
func (f *fakeTransport) Broadcast(env transport.Envelope) error {
	f.broadcast = append(f.broadcast, env)
	return nil
}
func (f *fakeTransport) OnMessage(h transport.Handler) {}

func TestOnHelloRepliesWithPeerList(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	m := membership.NewManager("self", tr, nil, nil, nil, time.Second, 4*time.Second, 32)

	m.OnHello("peer-a", time.Unix(0, 0))
	require.Len(t, tr.sent, 1)
	require.Equal(t, transport.TypePeerList, tr.sent[0].Type)
}

func TestTickBroadcastsHeartbeatAndPeerList(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	m := membership.NewManager("self", tr, nil, nil, nil, time.Second, 4*time.Second, 32)

	base := time.Unix(0, 0)
	m.Tick(base)
	require.Len(t, tr.broadcast, 2) // first tick fires both heartbeat and peer-list
}

func TestMaxPeersEvictsOldestLastSeen(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	m := membership.NewManager("self", tr, nil, nil, nil, time.Second, 4*time.Second, 2)

	m.OnHeartbeat("peer-a", 0.9, time.Unix(0, 0))
	m.OnHeartbeat("peer-b", 0.9, time.Unix(1, 0))
	m.OnHeartbeat("peer-c", 0.9, time.Unix(2, 0))

	require.Equal(t, 2, m.Count())
	alive := m.AlivePeers()
	require.False(t, alive.Contains("peer-a"))
}

func TestLivenessMarkedDeadAfterTimeout(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	m := membership.NewManager("self", tr, nil, nil, nil, time.Second, 4*time.Second, 32)

	base := time.Unix(0, 0)
	m.OnHeartbeat("peer-a", 0.9, base)
	m.Tick(base.Add(10 * time.Second))

	alive := m.AlivePeers()
	require.False(t, alive.Contains("peer-a"))
}

func TestFeedsTStateObservations(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	ts := tstate.NewManager(5 * time.Second)
	m := membership.NewManager("self", tr, ts, nil, nil, time.Second, 4*time.Second, 32)

	base := time.Unix(0, 0)
	m.OnHeartbeat("peer-a", 0.2, base)
	m.Tick(base)
	require.Equal(t, tstate.T1, ts.Current())
}

func TestObserveDeniesPermanentlyBannedPeer(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	rep := reputation.NewTracker(0.1, 0.2)
	for i := 0; i < 4; i++ {
		rep.RecordViolation("peer-a", "bad")
	}
	adm := admission.NewController(rep)
	m := membership.NewManager("self", tr, nil, adm, nil, time.Second, 4*time.Second, 32)

	m.OnHeartbeat("peer-a", 0.9, time.Unix(0, 0))
	require.Equal(t, 0, m.Count())
}
