package poll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanqianwin-jpg/aimp/engine"
	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

type fakeTransport struct {
	inbox []transport.ParsedEmail
	sent  []transport.OutboundEmail
}

func (f *fakeTransport) Fetch(ctx context.Context) ([]transport.ParsedEmail, error) {
	out := f.inbox
	f.inbox = nil
	return out, nil
}

func (f *fakeTransport) Send(ctx context.Context, msg transport.OutboundEmail) (string, error) {
	f.sent = append(f.sent, msg)
	return "<fake-id>", nil
}

type fakeSender struct {
	sessionSends []engine.OutboundMessage
	roomSends    []engine.OutboundMessage
	plainSends   []plainSend
}

type plainSend struct {
	to, subject, body string
}

func (f *fakeSender) SendSession(ctx context.Context, sessionID string, version int, msg engine.OutboundMessage) error {
	f.sessionSends = append(f.sessionSends, msg)
	return nil
}

func (f *fakeSender) SendRoom(ctx context.Context, roomID string, msg engine.OutboundMessage) error {
	f.roomSends = append(f.roomSends, msg)
	return nil
}

func (f *fakeSender) SendPlain(ctx context.Context, to, subject, body string) error {
	f.plainSends = append(f.plainSends, plainSend{to, subject, body})
	return nil
}

type fakeNotifier struct{ notified []string }

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.notified = append(f.notified, message)
	return nil
}

type fakeResolver struct{ known map[string]string }

func (f *fakeResolver) Resolve(name string) (string, bool) {
	addr, ok := f.known[name]
	return addr, ok
}

type fakeOracle struct {
	humanReply *oracle.HumanReplyResult
	memberReq  *oracle.MemberRequestResult
	amendment  *oracle.AmendmentResult
	aggregate  *oracle.AggregateResult
	minutes    string
}

func (f *fakeOracle) ParseHumanReply(ctx context.Context, body string, currentOptions map[string][]string) (*oracle.HumanReplyResult, error) {
	return f.humanReply, nil
}

func (f *fakeOracle) ParseMemberRequest(ctx context.Context, memberName, subject, body string) (*oracle.MemberRequestResult, error) {
	return f.memberReq, nil
}

func (f *fakeOracle) ParseAmendment(ctx context.Context, memberName, body string, currentArtifacts map[string]string) (*oracle.AmendmentResult, error) {
	return f.amendment, nil
}

func (f *fakeOracle) AggregateAmendments(ctx context.Context, topic string, transcript []oracle.TranscriptEntry, deadline int64) (*oracle.AggregateResult, error) {
	return f.aggregate, nil
}

func (f *fakeOracle) GenerateMinutes(ctx context.Context, topic string, transcript []oracle.TranscriptEntry, resolution map[string]string, participants []string) (string, error) {
	return f.minutes, nil
}

func newTestLoop(t *testing.T, o oracle.Oracle) (*Loop, *store.Store, *fakeTransport, *fakeSender) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tr := &fakeTransport{}
	sender := &fakeSender{}
	loop := &Loop{
		Store:      st,
		Transport:  tr,
		Sessions:   &engine.SessionEngine{Oracle: o},
		Rooms:      &engine.RoomEngine{Oracle: o},
		Oracle:     o,
		Registry:   identity.NewRegistry(nil, nil, nil, nil),
		Throttle:   identity.NewStrangerThrottle(0),
		Sender:     sender,
		HubAddress: "hub@example.com",
	}
	return loop, st, tr, sender
}

// Property 1/4 + S1: a full round of protocol-attached votes confirms the
// session exactly once, with no premature process_round before the round is
// complete.
func TestTickConfirmsSessionOnFullRound(t *testing.T) {
	loop, st, tr, sender := newTestLoop(t, &fakeOracle{})

	sess := protocol.NewSession("sess-1", "lunch", []string{"i@x.com", "a@x.com", "b@x.com"}, "i@x.com")
	sess.AddOption("time", "Mon 10am")
	sess.AddOption("time", "Tue 2pm")
	require.NoError(t, sess.ApplyVote("i@x.com", "time", "Mon 10am"))
	sess.AddOption("location", "cafe")
	require.NoError(t, sess.ApplyVote("i@x.com", "location", "cafe"))
	require.NoError(t, st.SaveSession(sess))

	wireFor := func(from string) []byte {
		clone := sess.Clone()
		clone.ApplyVote(from, "time", "Mon 10am")
		clone.ApplyVote(from, "location", "cafe")
		wire, err := clone.ToWire()
		require.NoError(t, err)
		return wire
	}

	tr.inbox = []transport.ParsedEmail{
		{From: "a@x.com", Subject: "[AIMP:sess-1] v0 lunch", Body: "Mon 10am works",
			Attachments: []transport.Attachment{{Filename: "protocol.json", Content: wireFor("a@x.com")}}},
	}
	loop.Tick(context.Background(), 1000)

	reloaded, err := st.LoadSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, protocol.SessionNegotiating, reloaded.Status, "round not complete with only A replying")
	assert.Empty(t, sender.sessionSends)

	tr.inbox = []transport.ParsedEmail{
		{From: "b@x.com", Subject: "[AIMP:sess-1] v0 lunch", Body: "Mon 10am works",
			Attachments: []transport.Attachment{{Filename: "protocol.json", Content: wireFor("b@x.com")}}},
	}
	loop.Tick(context.Background(), 1001)

	reloaded, err = st.LoadSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, protocol.SessionConfirmed, reloaded.Status)
	assert.Len(t, sender.sessionSends, 2)
}

// Property 2 (at-most-once): pending rows already processed are never
// re-folded into a later round.
func TestTickMarksPendingRowsProcessedOnlyOnce(t *testing.T) {
	loop, st, tr, _ := newTestLoop(t, &fakeOracle{humanReply: &oracle.HumanReplyResult{Votes: map[string]*string{}}})

	sess := protocol.NewSession("sess-2", "standup", []string{"i@x.com", "a@x.com"}, "i@x.com")
	require.NoError(t, st.SaveSession(sess))

	tr.inbox = []transport.ParsedEmail{{From: "a@x.com", Subject: "[AIMP:sess-2] v0 standup", Body: "no opinion"}}
	loop.Tick(context.Background(), 1000)

	// The folded row is marked processed, so it is no longer loaded as pending.
	pending, err := st.LoadPendingForSession("sess-2")
	require.NoError(t, err)
	require.Empty(t, pending)
	afterFirst, err := st.LoadSession("sess-2")
	require.NoError(t, err)

	// A second, empty tick must not re-process the same row.
	loop.Tick(context.Background(), 1001)
	pendingAfter, err := st.LoadPendingForSession("sess-2")
	require.NoError(t, err)
	require.Empty(t, pendingAfter)
	afterSecond, err := st.LoadSession("sess-2")
	require.NoError(t, err)
	assert.Equal(t, afterFirst.Version, afterSecond.Version)
}

// Property 8 / S3 partial: a room whose deadline has already passed is
// finalized by the sweep even when no new mail arrived for it.
func TestDeadlineSweepFinalizesExpiredRoomOnly(t *testing.T) {
	loop, st, _, sender := newTestLoop(t, &fakeOracle{minutes: "# Minutes"})

	expired := protocol.NewRoom("room-1", "budget", []string{"a@x.com", "b@x.com"}, "a@x.com", 500, "")
	future := protocol.NewRoom("room-2", "roadmap", []string{"a@x.com"}, "a@x.com", 5000, "")
	require.NoError(t, st.SaveRoom(expired))
	require.NoError(t, st.SaveRoom(future))

	loop.sweepDeadlines(context.Background(), 1000)

	reloadedExpired, err := st.LoadRoom("room-1")
	require.NoError(t, err)
	assert.True(t, reloadedExpired.IsTerminal())

	reloadedFuture, err := st.LoadRoom("room-2")
	require.NoError(t, err)
	assert.False(t, reloadedFuture.IsTerminal())

	assert.NotEmpty(t, sender.roomSends)
}

// S5: a stranger with a valid invite code is registered and their follow-up
// free-text command creates a session and invites the resolved participant.
func TestInviteThenScheduleMeetingCreatesSession(t *testing.T) {
	topic := "quick sync"
	loop, st, tr, sender := newTestLoop(t, &fakeOracle{
		memberReq: &oracle.MemberRequestResult{Action: "schedule_meeting", Topic: &topic, Participants: []string{"Bob"}},
	})
	loop.Registry = identity.NewRegistry(nil, []*identity.InviteCode{{Code: "open2026", MaxUses: 1}}, nil, nil)
	loop.Resolver = &fakeResolver{known: map[string]string{"Bob": "bob@x.com"}}

	tr.inbox = []transport.ParsedEmail{{From: "x@unknown.com", FromName: "X", Subject: "[AIMP-INVITE:open2026]", Body: ""}}
	loop.Tick(context.Background(), 1000)

	assert.NotNil(t, loop.Registry.Identify("x@unknown.com"))
	assert.NotEmpty(t, sender.plainSends, "welcome message sent")

	tr.inbox = []transport.ParsedEmail{{From: "x@unknown.com", Subject: "scheduling", Body: "schedule a meeting with Bob tomorrow"}}
	loop.Tick(context.Background(), 1001)

	rows, err := st.LoadOpenRooms() // sanity: no room created
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotEmpty(t, sender.sessionSends, "Bob was invited to the new session")
}

// spec §9: a Session participant replying from an address the Registry
// doesn't yet know is auto-registered as a trusted member before their vote
// is folded, without requiring an invite code.
func TestSessionReplyFromUnknownAddressAutoRegisters(t *testing.T) {
	loop, st, tr, _ := newTestLoop(t, &fakeOracle{})

	sess := protocol.NewSession("sess-3", "retro", []string{"i@x.com", "new@x.com"}, "i@x.com")
	require.NoError(t, st.SaveSession(sess))

	assert.Nil(t, loop.Registry.Identify("new@x.com"))

	tr.inbox = []transport.ParsedEmail{{From: "new@x.com", FromName: "New Person", Subject: "[AIMP:sess-3] v0 retro", Body: "sounds good"}}
	loop.Tick(context.Background(), 1000)

	member := loop.Registry.Identify("new@x.com")
	require.NotNil(t, member, "unknown session participant must be auto-registered on first reply")
	assert.Equal(t, identity.RoleTrusted, member.Role)
}

// S6: bounce/auto-reply messages are dropped without any reply or state
// change.
func TestBounceMessageIsDroppedSilently(t *testing.T) {
	loop, _, tr, sender := newTestLoop(t, &fakeOracle{})

	tr.inbox = []transport.ParsedEmail{{From: "mailer-daemon@example.com", Subject: "Undeliverable: your message"}}
	loop.Tick(context.Background(), 1000)

	assert.Empty(t, sender.plainSends)
	assert.Empty(t, sender.sessionSends)
	assert.Empty(t, sender.roomSends)
}
