package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 5: from_wire(to_wire(s)) preserves every observable field.
func TestSessionWireRoundTrip(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a", "b"}, "i")
	s.AddOption("time", "Mon 10am")
	s.AddOption("time", "Tue 2pm")
	require.NoError(t, s.ApplyVote("i", "time", "Mon 10am"))
	require.NoError(t, s.ApplyVote("a", "time", "Mon 10am"))
	s.RecordRoundReply("a")
	s.BumpVersion()
	s.AddHistory("i", "propose", "offered two slots")
	s.Status = SessionConfirmed

	data, err := s.ToWire()
	require.NoError(t, err)

	back, err := SessionFromWire(data)
	require.NoError(t, err)

	assert.Equal(t, s.SessionID, back.SessionID)
	assert.Equal(t, s.Topic, back.Topic)
	assert.Equal(t, s.Initiator, back.Initiator)
	assert.Equal(t, s.Version, back.Version)
	assert.Equal(t, s.Status, back.Status)
	assert.Equal(t, s.CurrentRound, back.CurrentRound)
	assert.ElementsMatch(t, s.Participants, back.Participants)
	assert.Equal(t, s.History, back.History)
	assert.Equal(t, s.Proposals["time"].Options, back.Proposals["time"].Options)
	assert.Equal(t, s.Proposals["time"].Votes, back.Proposals["time"].Votes)
	assert.Equal(t, s.RoundRespondents, back.RoundRespondents)
}

func TestSessionWireUnvotedSerializesAsNull(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	s.AddOption("time", "Mon 10am")
	data, err := s.ToWire()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a":null`)
}

func TestRoomWireRoundTrip(t *testing.T) {
	r := NewRoom("room-1", "launch plan", []string{"a", "b", "c"}, "a", 1700000000, ResolutionConsensus)
	r.Accept("a")
	r.Accept("b")
	r.PutArtifact(&Artifact{Name: "proposal_b_1000", ContentType: "text/plain", BodyText: "v1", Author: "b", Timestamp: 1000})
	r.AddToTranscript("b", "AMEND", "tweaked budget")
	r.RecordRoundReply("b")

	data, err := r.ToWire()
	require.NoError(t, err)

	back, err := RoomFromWire(data)
	require.NoError(t, err)

	assert.Equal(t, r.RoomID, back.RoomID)
	assert.Equal(t, r.Topic, back.Topic)
	assert.Equal(t, r.Initiator, back.Initiator)
	assert.Equal(t, r.Deadline, back.Deadline)
	assert.Equal(t, r.Status, back.Status)
	assert.Equal(t, r.ResolutionRules, back.ResolutionRules)
	assert.Equal(t, r.CurrentRound, back.CurrentRound)
	assert.ElementsMatch(t, r.Participants, back.Participants)
	assert.Equal(t, r.Transcript, back.Transcript)
	assert.Equal(t, r.Artifacts, back.Artifacts)
	assert.Equal(t, r.AcceptedBy, back.AcceptedBy)
	assert.Equal(t, r.RoundRespondents, back.RoundRespondents)
}

func TestSessionFromWireFillsMissingAgendaItems(t *testing.T) {
	back, err := SessionFromWire([]byte(`{"session_id":"s1","participants":["i"]}`))
	require.NoError(t, err)
	assert.Len(t, back.Proposals, len(AgendaItems))
	assert.Equal(t, SessionNegotiating, back.Status)
	assert.Equal(t, 1, back.CurrentRound)
}
