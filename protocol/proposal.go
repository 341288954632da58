package protocol

// ProposalItem holds the candidate options and per-participant votes for a
// single agenda item (e.g. "time" or "location") of a Session (§3.1).
type ProposalItem struct {
	Options []string          `json:"options"`
	Votes   map[string]string `json:"votes"` // address -> choice; empty string means unvoted
}

func newProposalItem(participants []string) *ProposalItem {
	votes := make(map[string]string, len(participants))
	for _, p := range participants {
		votes[p] = ""
	}
	return &ProposalItem{Options: []string{}, Votes: votes}
}

// AddOption idempotently appends an option (§4.1 add_option).
func (p *ProposalItem) AddOption(option string) {
	for _, o := range p.Options {
		if o == option {
			return
		}
	}
	p.Options = append(p.Options, option)
}

// Vote records voter's choice. The choice must already be a known option;
// callers needing the lenient "discover new option from a vote" semantics
// of §9 should call AddOption first.
func (p *ProposalItem) Vote(voter, choice string) error {
	if !p.hasOption(choice) {
		return &UnknownOptionError{Choice: choice, Valid: append([]string(nil), p.Options...)}
	}
	if p.Votes == nil {
		p.Votes = map[string]string{}
	}
	p.Votes[voter] = choice
	return nil
}

func (p *ProposalItem) hasOption(choice string) bool {
	for _, o := range p.Options {
		if o == choice {
			return true
		}
	}
	return false
}

func (p *ProposalItem) ensureVoter(voter string) {
	if p.Votes == nil {
		p.Votes = map[string]string{}
	}
	if _, ok := p.Votes[voter]; !ok {
		p.Votes[voter] = ""
	}
}

// CheckConsensus returns the agreed choice, or "" if the item has no
// consensus yet. Per I3, consensus requires every participant to have voted
// and all non-empty votes to be identical.
func (p *ProposalItem) CheckConsensus() string {
	if len(p.Votes) == 0 {
		return ""
	}
	var agreed string
	for _, choice := range p.Votes {
		if choice == "" {
			return ""
		}
		if agreed == "" {
			agreed = choice
		} else if agreed != choice {
			return ""
		}
	}
	return agreed
}

func (p *ProposalItem) clone() *ProposalItem {
	options := append([]string(nil), p.Options...)
	votes := make(map[string]string, len(p.Votes))
	for k, v := range p.Votes {
		votes[k] = v
	}
	return &ProposalItem{Options: options, Votes: votes}
}
