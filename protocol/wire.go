package protocol

import (
	"encoding/json"
	"sort"
)

// sessionWire is the exact over-the-network representation described in
// spec §6.2. It differs from the in-memory Session in two ways: unvoted
// choices serialize as JSON null instead of "", and round_respondents
// serializes as a sorted array instead of a set.
type sessionWire struct {
	Protocol         string                  `json:"protocol"`
	SessionID        string                  `json:"session_id"`
	Version          int                     `json:"version"`
	Topic            string                  `json:"topic"`
	From             string                  `json:"from"`
	Participants     []string                `json:"participants"`
	Proposals        map[string]proposalWire `json:"proposals"`
	Status           string                  `json:"status"`
	History          []HistoryEntry          `json:"history"`
	CurrentRound     int                     `json:"current_round"`
	RoundRespondents []string                `json:"round_respondents"`
}

type proposalWire struct {
	Options []string           `json:"options"`
	Votes   map[string]*string `json:"votes"`
}

// ToWire serializes the session into the AIMP/0.1 wire form (§6.2).
func (s *Session) ToWire() ([]byte, error) {
	w := sessionWire{
		Protocol:     ProtocolVersion,
		SessionID:    s.SessionID,
		Version:      s.Version,
		Topic:        s.Topic,
		From:         s.Initiator,
		Participants: append([]string(nil), s.Participants...),
		Proposals:    make(map[string]proposalWire, len(s.Proposals)),
		Status:       s.Status,
		History:      append([]HistoryEntry(nil), s.History...),
		CurrentRound: s.CurrentRound,
	}
	for name, item := range s.Proposals {
		votes := make(map[string]*string, len(item.Votes))
		for addr, choice := range item.Votes {
			if choice == "" {
				votes[addr] = nil
			} else {
				c := choice
				votes[addr] = &c
			}
		}
		w.Proposals[name] = proposalWire{Options: append([]string(nil), item.Options...), Votes: votes}
	}
	for addr := range s.RoundRespondents {
		if s.RoundRespondents[addr] {
			w.RoundRespondents = append(w.RoundRespondents, addr)
		}
	}
	sort.Strings(w.RoundRespondents)
	return json.Marshal(w)
}

// SessionFromWire parses a wire-form payload (e.g. the protocol.json
// attachment) back into a Session, ensuring every fixed agenda item exists
// even if the payload omitted it.
func SessionFromWire(data []byte) (*Session, error) {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	s := &Session{
		SessionID:        w.SessionID,
		Topic:            w.Topic,
		Participants:     append([]string(nil), w.Participants...),
		Initiator:        w.From,
		Version:          w.Version,
		Proposals:        make(map[string]*ProposalItem, len(w.Proposals)),
		History:          append([]HistoryEntry(nil), w.History...),
		Status:           w.Status,
		CurrentRound:     w.CurrentRound,
		RoundRespondents: make(map[string]bool, len(w.RoundRespondents)),
	}
	if s.Status == "" {
		s.Status = SessionNegotiating
	}
	if s.CurrentRound == 0 {
		s.CurrentRound = 1
	}
	for name, pw := range w.Proposals {
		votes := make(map[string]string, len(pw.Votes))
		for addr, choice := range pw.Votes {
			if choice == nil {
				votes[addr] = ""
			} else {
				votes[addr] = *choice
			}
		}
		s.Proposals[name] = &ProposalItem{Options: append([]string(nil), pw.Options...), Votes: votes}
	}
	for _, item := range AgendaItems {
		if _, ok := s.Proposals[item]; !ok {
			s.Proposals[item] = newProposalItem(s.Participants)
		}
	}
	for _, addr := range w.RoundRespondents {
		s.RoundRespondents[addr] = true
	}
	return s, nil
}

// roomWire is the over-the-network representation of a Room, mirroring
// sessionWire: sets serialize as sorted arrays.
type roomWire struct {
	Protocol         string               `json:"protocol"`
	RoomID           string               `json:"room_id"`
	Topic            string               `json:"topic"`
	From             string               `json:"from"`
	Participants     []string             `json:"participants"`
	Deadline         int64                `json:"deadline"`
	Artifacts        map[string]*Artifact `json:"artifacts"`
	Transcript       []HistoryEntry       `json:"transcript"`
	Status           string               `json:"status"`
	AcceptedBy       []string             `json:"accepted_by"`
	ResolutionRules  string               `json:"resolution_rules"`
	CurrentRound     int                  `json:"current_round"`
	RoundRespondents []string             `json:"round_respondents"`
}

// ToWire serializes the room into the AIMP/0.1 wire form (§6.2).
func (r *Room) ToWire() ([]byte, error) {
	w := roomWire{
		Protocol:        ProtocolVersion,
		RoomID:          r.RoomID,
		Topic:           r.Topic,
		From:            r.Initiator,
		Participants:    append([]string(nil), r.Participants...),
		Deadline:        r.Deadline,
		Artifacts:       r.Artifacts,
		Transcript:      append([]HistoryEntry(nil), r.Transcript...),
		Status:          r.Status,
		ResolutionRules: r.ResolutionRules,
		CurrentRound:    r.CurrentRound,
	}
	for addr, ok := range r.AcceptedBy {
		if ok {
			w.AcceptedBy = append(w.AcceptedBy, addr)
		}
	}
	sort.Strings(w.AcceptedBy)
	for addr, ok := range r.RoundRespondents {
		if ok {
			w.RoundRespondents = append(w.RoundRespondents, addr)
		}
	}
	sort.Strings(w.RoundRespondents)
	return json.Marshal(w)
}

// RoomFromWire parses a wire-form payload back into a Room.
func RoomFromWire(data []byte) (*Room, error) {
	var w roomWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	r := &Room{
		RoomID:           w.RoomID,
		Topic:            w.Topic,
		Initiator:        w.From,
		Participants:     append([]string(nil), w.Participants...),
		Deadline:         w.Deadline,
		Artifacts:        w.Artifacts,
		Transcript:       append([]HistoryEntry(nil), w.Transcript...),
		Status:           w.Status,
		ResolutionRules:  w.ResolutionRules,
		CurrentRound:     w.CurrentRound,
		AcceptedBy:       make(map[string]bool, len(w.AcceptedBy)),
		RoundRespondents: make(map[string]bool, len(w.RoundRespondents)),
	}
	if r.Artifacts == nil {
		r.Artifacts = map[string]*Artifact{}
	}
	if r.Status == "" {
		r.Status = RoomOpen
	}
	if r.ResolutionRules == "" {
		r.ResolutionRules = ResolutionMajority
	}
	if r.CurrentRound == 0 {
		r.CurrentRound = 1
	}
	for _, addr := range w.AcceptedBy {
		r.AcceptedBy[addr] = true
	}
	for _, addr := range w.RoundRespondents {
		r.RoundRespondents[addr] = true
	}
	return r, nil
}
