package protocol

// ProtocolVersion is the wire-level protocol identifier sent in every
// Session wire form (§6.2).
const ProtocolVersion = "AIMP/0.1"

// MaxRounds is the stall threshold used by SessionEngine (§4.4.1 rule 2).
const MaxRounds = 5

// AgendaItems are the fixed, extensible set of agenda items a Session
// negotiates (§3.1).
var AgendaItems = []string{"time", "location"}

// Session status values (§3.1).
const (
	SessionNegotiating = "negotiating"
	SessionConfirmed   = "confirmed"
	SessionEscalated   = "escalated"
)

// Session represents one scheduling negotiation (§3.1). All mutating methods
// are pure: no I/O, no logging, no wall-clock reads.
type Session struct {
	SessionID        string                   `json:"session_id"`
	Topic            string                   `json:"topic"`
	Participants     []string                 `json:"participants"`
	Initiator        string                   `json:"from"`
	Version          int                      `json:"version"`
	Proposals        map[string]*ProposalItem `json:"proposals"`
	History          []HistoryEntry           `json:"history"`
	Status           string                   `json:"status"`
	CurrentRound     int                      `json:"current_round"`
	RoundRespondents map[string]bool          `json:"round_respondents"`
}

// NewSession initializes a Session with empty proposals for every fixed
// agenda item and an unvoted slot for each participant (§4.1 new_session).
func NewSession(id, topic string, participants []string, initiator string) *Session {
	s := &Session{
		SessionID:        id,
		Topic:            topic,
		Participants:     append([]string(nil), participants...),
		Initiator:        initiator,
		Version:          0,
		Proposals:        map[string]*ProposalItem{},
		History:          []HistoryEntry{},
		Status:           SessionNegotiating,
		CurrentRound:     1,
		RoundRespondents: map[string]bool{},
	}
	for _, item := range AgendaItems {
		s.Proposals[item] = newProposalItem(s.Participants)
	}
	return s
}

// EnsureParticipant adds addr to the participant list (if missing) and gives
// it an unvoted slot in every existing proposal item (§4.1 ensure_participant).
func (s *Session) EnsureParticipant(addr string) {
	found := false
	for _, p := range s.Participants {
		if p == addr {
			found = true
			break
		}
	}
	if !found {
		s.Participants = append(s.Participants, addr)
	}
	for _, item := range s.Proposals {
		item.ensureVoter(addr)
	}
}

// AddOption idempotently adds option to item, creating the item if it does
// not yet exist (§4.1 add_option).
func (s *Session) AddOption(item, option string) {
	p, ok := s.Proposals[item]
	if !ok {
		p = newProposalItem(s.Participants)
		s.Proposals[item] = p
	}
	p.AddOption(option)
}

// ApplyVote ensures voter is a participant, then records their vote. It
// returns UnknownOptionError if choice is not among item's options (§4.1
// apply_vote).
func (s *Session) ApplyVote(voter, item, choice string) error {
	s.EnsureParticipant(voter)
	p, ok := s.Proposals[item]
	if !ok {
		return &InvariantViolationError{Invariant: "I2", Detail: "unknown agenda item " + item}
	}
	if err := p.Vote(voter, choice); err != nil {
		if uerr, ok := err.(*UnknownOptionError); ok {
			uerr.Item = item
		}
		return err
	}
	return nil
}

// CheckConsensus returns, per agenda item, the agreed choice or "" (§4.1
// check_consensus / I3).
func (s *Session) CheckConsensus() map[string]string {
	result := make(map[string]string, len(s.Proposals))
	for name, item := range s.Proposals {
		result[name] = item.CheckConsensus()
	}
	return result
}

// IsFullyResolved reports whether every agenda item has consensus (§4.1
// is_fully_resolved / I3).
func (s *Session) IsFullyResolved() bool {
	for _, item := range s.Proposals {
		if item.CheckConsensus() == "" {
			return false
		}
	}
	return true
}

// RecordRoundReply adds addr to the set of senders who have replied in the
// current round (§4.1 record_round_reply).
func (s *Session) RecordRoundReply(addr string) {
	if s.RoundRespondents == nil {
		s.RoundRespondents = map[string]bool{}
	}
	s.RoundRespondents[addr] = true
}

// IsRoundComplete implements I4: round 1 needs every non-initiator to have
// replied; round 2+ needs every participant, including the initiator. An
// empty participant list is never complete.
func (s *Session) IsRoundComplete() bool {
	if len(s.Participants) == 0 {
		return false
	}
	required := s.Participants
	if s.CurrentRound == 1 {
		required = nil
		for _, p := range s.Participants {
			if p != s.Initiator {
				required = append(required, p)
			}
		}
		if len(required) == 0 {
			// A session with only the initiator as participant can never
			// round-complete via replies; treated as not-complete per I4's
			// "empty participant list is never complete" spirit extended to
			// an empty *required* list.
			return false
		}
	}
	for _, p := range required {
		if !s.RoundRespondents[p] {
			return false
		}
	}
	return true
}

// AdvanceRound increments current_round and clears round_respondents (§4.1
// advance_round).
func (s *Session) AdvanceRound() {
	s.CurrentRound++
	s.RoundRespondents = map[string]bool{}
}

// BumpVersion increments version (§4.1 bump_version).
func (s *Session) BumpVersion() {
	s.Version++
}

// AddHistory appends a history entry carrying the post-bump version (§4.1
// add_history).
func (s *Session) AddHistory(from, action, summary string) {
	s.History = append(s.History, HistoryEntry{
		Version: s.Version,
		From:    from,
		Action:  action,
		Summary: summary,
	})
}

// IsStalled reports whether the session has exhausted maxRounds without
// convergence — the SessionEngine's rule-2 stall predicate (§4.4.1). A
// maxRounds <= 0 falls back to the package default MaxRounds.
func (s *Session) IsStalled(maxRounds int) bool {
	if maxRounds <= 0 {
		maxRounds = MaxRounds
	}
	return len(s.History) >= maxRounds
}

// IsTerminal reports whether the session has reached a status from which no
// further transitions are produced by inbound messages (I5).
func (s *Session) IsTerminal() bool {
	return s.Status == SessionConfirmed || s.Status == SessionEscalated
}

// Clone returns a deep copy, for callers that want to mutate a copy and
// then persist or discard it (copy-mutate-persist-or-discard).
func (s *Session) Clone() *Session {
	out := *s
	out.Participants = append([]string(nil), s.Participants...)
	out.History = append([]HistoryEntry(nil), s.History...)
	out.Proposals = make(map[string]*ProposalItem, len(s.Proposals))
	for k, v := range s.Proposals {
		out.Proposals[k] = v.clone()
	}
	out.RoundRespondents = make(map[string]bool, len(s.RoundRespondents))
	for k, v := range s.RoundRespondents {
		out.RoundRespondents[k] = v
	}
	return &out
}
