package node_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/clock"
	"github.com/swarmcore/governance/config"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/node"
	"github.com/swarmcore/governance/transport"
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

func newTestNode(t *testing.T, mock *clock.Mock) (*node.Node, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{id: "self"}
	cfg := config.Default()
	n := node.New("self", tr, cfg, mock, nil, nil)
	return n, tr
}

func TestTickBroadcastsMembershipMessages(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, tr := newTestNode(t, mock)

	n.Tick(mock.Now())
	require.NotEmpty(t, tr.broadcast)
}

func TestAuthorityRevokeCascadesToQuarantineAndViolation(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, _ := newTestNode(t, mock)

	req := n.Authority.Request("peer-a", "write", "trusted")
	require.NotNil(t, req)
	_, granted := n.Authority.Grant(req.ID)
	require.True(t, granted)

	require.True(t, n.Authority.Revoke("peer-a", "bad behavior"))
	require.True(t, n.Quarantine.IsQuarantined("peer-a"))
	require.Equal(t, 1, n.Reputation.Violations("peer-a"))
}

func TestConflictDetectionAppendsAuditEntry(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, _ := newTestNode(t, mock)

	n.Conflict.ObserveBelief("peer-a", "claim-1", "strengthen")
	n.Conflict.ObserveBelief("peer-b", "claim-1", "weaken")
	n.Conflict.ObserveBelief("peer-c", "claim-1", "retract")

	require.Greater(t, n.Audit.Len(), 0)
}

func TestDispatchHeartbeatObservesPeer(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, _ := newTestNode(t, mock)

	body, err := json.Marshal(transport.HeartbeatBody{Confidence: 0.9})
	require.NoError(t, err)
	n.Dispatch(transport.Envelope{Type: transport.TypeHeartbeat, From: "peer-a", Body: body})

	alive := n.Membership.AlivePeers()
	require.True(t, alive.Contains("peer-a"))
}

func TestDispatchCheckpointReqSendsResponse(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, tr := newTestNode(t, mock)

	body, err := json.Marshal(transport.CheckpointReqBody{ClaimHash: "claim-1"})
	require.NoError(t, err)
	n.Dispatch(transport.Envelope{Type: transport.TypeCheckpointReq, From: "peer-a", Body: body})

	require.Len(t, tr.sent, 1)
	require.Equal(t, transport.TypeCheckpointResp, tr.sent[0].Type)
}

func TestDispatchAuthorityRequestAutoGrants(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, _ := newTestNode(t, mock)

	body, err := json.Marshal(transport.AuthorityRequestBody{RequestID: "ignored", Scope: "write", Reason: "trusted"})
	require.NoError(t, err)
	n.Dispatch(transport.Envelope{Type: transport.TypeAuthorityRequest, From: "peer-a", Body: body})

	require.True(t, n.Authority.HasAuthority("peer-a", mock.Now()))
}

func TestSnapshotAndRestoreLatest(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	n, _ := newTestNode(t, mock)

	n.Snapshot(mock.Now())
	require.Equal(t, 1, n.Rollback.Len())

	ok := n.Rollback.RestoreLatest(n.Beliefs)
	require.True(t, ok)
}
