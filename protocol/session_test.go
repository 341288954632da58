package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionInitializesAgenda(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i@x.com", "a@x.com"}, "i@x.com")
	assert.Len(t, s.Proposals, len(AgendaItems))
	for _, item := range AgendaItems {
		p, ok := s.Proposals[item]
		require.True(t, ok)
		assert.Empty(t, p.Options)
		assert.Equal(t, "", p.Votes["i@x.com"])
		assert.Equal(t, "", p.Votes["a@x.com"])
	}
	assert.Equal(t, SessionNegotiating, s.Status)
	assert.Equal(t, 1, s.CurrentRound)
}

func TestApplyVoteRejectsUnknownOption(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i@x.com", "a@x.com"}, "i@x.com")
	s.AddOption("time", "Mon 10am")
	err := s.ApplyVote("a@x.com", "time", "Tue 2pm")
	require.Error(t, err)
	var uerr *UnknownOptionError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "time", uerr.Item)
}

func TestApplyVoteEnsuresVoterIsParticipant(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i@x.com"}, "i@x.com")
	s.AddOption("time", "Mon 10am")
	err := s.ApplyVote("stranger@x.com", "time", "Mon 10am")
	require.NoError(t, err)
	assert.Contains(t, s.Participants, "stranger@x.com")
}

// Property 3: consensus is a pure function of (participants, proposals);
// vote insertion order does not matter.
func TestConsensusDeterminismAcrossInsertionOrder(t *testing.T) {
	build := func(order []string) *Session {
		s := NewSession("sess-1", "lunch", []string{"i", "a", "b"}, "i")
		s.AddOption("time", "Mon 10am")
		s.AddOption("time", "Tue 2pm")
		votes := map[string]string{"i": "Mon 10am", "a": "Mon 10am", "b": "Mon 10am"}
		for _, voter := range order {
			require.NoError(t, s.ApplyVote(voter, "time", votes[voter]))
		}
		return s
	}
	s1 := build([]string{"i", "a", "b"})
	s2 := build([]string{"b", "i", "a"})
	assert.Equal(t, s1.CheckConsensus()["time"], s2.CheckConsensus()["time"])
	assert.Equal(t, "Mon 10am", s1.CheckConsensus()["time"])
}

func TestIsFullyResolvedRequiresEveryItem(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	s.AddOption("time", "Mon 10am")
	s.AddOption("location", "Cafe")
	require.NoError(t, s.ApplyVote("i", "time", "Mon 10am"))
	require.NoError(t, s.ApplyVote("a", "time", "Mon 10am"))
	assert.False(t, s.IsFullyResolved())
	require.NoError(t, s.ApplyVote("i", "location", "Cafe"))
	require.NoError(t, s.ApplyVote("a", "location", "Cafe"))
	assert.True(t, s.IsFullyResolved())
}

// Property 4: round-completion rules differ for round 1 vs round 2+.
func TestRoundCompletionRound1ExcludesInitiator(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a", "b"}, "i")
	assert.False(t, s.IsRoundComplete())
	s.RecordRoundReply("a")
	assert.False(t, s.IsRoundComplete())
	s.RecordRoundReply("b")
	assert.True(t, s.IsRoundComplete())
}

func TestRoundCompletionRound2IncludesInitiator(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a", "b"}, "i")
	s.RecordRoundReply("a")
	s.RecordRoundReply("b")
	require.True(t, s.IsRoundComplete())
	s.AdvanceRound()
	assert.False(t, s.IsRoundComplete())
	s.RecordRoundReply("a")
	s.RecordRoundReply("b")
	assert.False(t, s.IsRoundComplete(), "round 2 also requires the initiator")
	s.RecordRoundReply("i")
	assert.True(t, s.IsRoundComplete())
}

func TestRoundCompletionEmptyParticipantsNeverComplete(t *testing.T) {
	s := NewSession("sess-1", "lunch", nil, "i")
	assert.False(t, s.IsRoundComplete())
}

func TestIsStalledAfterMaxRounds(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	for i := 0; i < MaxRounds; i++ {
		s.BumpVersion()
		s.AddHistory("a", "vote", "no consensus yet")
	}
	assert.True(t, s.IsStalled(0))
}

func TestIsStalledRespectsConfiguredThreshold(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	for i := 0; i < 3; i++ {
		s.BumpVersion()
		s.AddHistory("a", "vote", "no consensus yet")
	}
	assert.False(t, s.IsStalled(0), "below the default MaxRounds")
	assert.True(t, s.IsStalled(3), "meets a configured lower threshold")
}

func TestIsTerminal(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	assert.False(t, s.IsTerminal())
	s.Status = SessionConfirmed
	assert.True(t, s.IsTerminal())
	s.Status = SessionEscalated
	assert.True(t, s.IsTerminal())
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewSession("sess-1", "lunch", []string{"i", "a"}, "i")
	s.AddOption("time", "Mon 10am")
	clone := s.Clone()
	clone.AddOption("time", "Tue 2pm")
	clone.Participants[0] = "mutated"
	require.NoError(t, clone.ApplyVote("a", "time", "Tue 2pm"))
	assert.Len(t, s.Proposals["time"].Options, 1)
	assert.Equal(t, "i", s.Participants[0])
	assert.Equal(t, "", s.Proposals["time"].Votes["a"])
}
