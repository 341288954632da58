package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
)

// S4: a round where every participant ACCEPTs finalizes the room and
// generates minutes instead of broadcasting another digest.
func TestRoomEngineFinalizesWhenAllAccept(t *testing.T) {
	room := protocol.NewRoom("room-1", "budget doc", []string{"a@x.com", "b@x.com"}, "a@x.com", 9999999999, "")

	fake := &fakeOracle{
		amendment: &oracle.AmendmentResult{Action: "ACCEPT"},
		minutes:   "# Minutes: budget doc\n\nAgreed.",
	}
	engine := &RoomEngine{Oracle: fake}

	pending := []store.PendingEmail{
		{From: "a@x.com", Body: "ACCEPT"},
		{From: "b@x.com", Body: "ACCEPT"},
	}
	result := engine.ProcessRound(context.Background(), room, pending, 1000)

	assert.True(t, result.Finalized)
	assert.True(t, room.IsTerminal())
	assert.Equal(t, protocol.RoomFinalized, room.Status)
	assert.Len(t, result.Outbound, 2)
}

// A room past its deadline finalizes even without full acceptance.
func TestRoomEngineFinalizesOnDeadlineExpiry(t *testing.T) {
	room := protocol.NewRoom("room-2", "budget doc", []string{"a@x.com", "b@x.com"}, "a@x.com", 500, "")

	fake := &fakeOracle{
		amendment: &oracle.AmendmentResult{Action: "ACCEPT"},
		minutes:   "# Minutes",
	}
	engine := &RoomEngine{Oracle: fake}

	pending := []store.PendingEmail{{From: "a@x.com", Body: "ACCEPT"}}
	result := engine.ProcessRound(context.Background(), room, pending, 600)

	assert.True(t, result.Finalized)
	assert.True(t, room.IsTerminal())
}

// An AMEND with new content creates a fresh artifact and advances the round
// without finalizing, broadcasting an aggregated digest instead.
func TestRoomEngineBroadcastsDigestOnPartialRound(t *testing.T) {
	room := protocol.NewRoom("room-3", "budget doc", []string{"a@x.com", "b@x.com"}, "a@x.com", 9999999999, "")

	newContent := "revised budget text"
	fake := &fakeOracle{
		amendment: &oracle.AmendmentResult{Action: "AMEND", NewContent: &newContent, Changes: "tweaked numbers"},
		aggregate: &oracle.AggregateResult{CurrentProposal: newContent, Summary: "one amendment pending"},
	}
	engine := &RoomEngine{Oracle: fake}

	pending := []store.PendingEmail{{From: "b@x.com", Body: "here's a revision", ReceivedAt: 42}}
	result := engine.ProcessRound(context.Background(), room, pending, 1000)

	assert.False(t, result.Finalized)
	assert.Equal(t, protocol.RoomOpen, room.Status)
	assert.Len(t, room.Artifacts, 1)
	assert.NotEmpty(t, result.Outbound)
	assert.Len(t, room.Transcript, 1)
	assert.Equal(t, "AMEND", room.Transcript[0].Action)
}

// Post-finalization CONFIRM records acceptance and acknowledges the sender;
// REJECT escalates to the initiator; anything else is ignored (I5).
func TestRoomEngineHandlesPostFinalizationReplies(t *testing.T) {
	room := protocol.NewRoom("room-4", "budget doc", []string{"a@x.com", "b@x.com"}, "a@x.com", 1000, "")
	room.Finalize()

	engine := &RoomEngine{}

	confirm := engine.HandlePostFinalizationReply(room, "b@x.com", "CONFIRM")
	require.True(t, confirm.Handled)
	assert.NotNil(t, confirm.ToSender)
	assert.Nil(t, confirm.ToInitiator)
	assert.True(t, room.AcceptedBy["b@x.com"])

	reject := engine.HandlePostFinalizationReply(room, "b@x.com", "REJECT the budget is wrong")
	require.True(t, reject.Handled)
	assert.NotNil(t, reject.ToInitiator)
	assert.NotNil(t, reject.ToSender)
	assert.Contains(t, reject.ToInitiator.Body, "the budget is wrong")

	ignored := engine.HandlePostFinalizationReply(room, "b@x.com", "thanks!")
	assert.False(t, ignored.Handled)
}

func TestRoomEngineFinalizeFallsBackToDeterministicMinutesOnOracleFailure(t *testing.T) {
	room := protocol.NewRoom("room-5", "budget doc", []string{"a@x.com"}, "a@x.com", 1000, "")

	fake := &fakeOracle{minutesErr: assertError("oracle unavailable")}
	engine := &RoomEngine{Oracle: fake}

	result := engine.Finalize(context.Background(), room, "all_accepted")

	assert.Contains(t, result.Minutes, "budget doc")
	assert.NotEmpty(t, result.Outbound)
}
