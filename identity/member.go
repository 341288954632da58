// Package identity implements the sender-identification, invite-code
// self-registration, and auto-reply-suppression gate described in spec
// §4.5: which senders the hub will act on, and how a stranger becomes a
// trusted member.
package identity

import "strings"

// Member roles (§4.5.1).
const (
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RoleTrusted = "trusted"
)

// Member is one entry of the address → {name, role} whitelist.
type Member struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Registry holds the members whitelist and invite codes, gating which
// senders the hub will act on (§4.5).
type Registry struct {
	members     map[string]*Member // keyed by lowercased email
	inviteCodes []*InviteCode
	onRegister  func(m *Member)
	onConsume   func(code string)
}

// NewRegistry builds a Registry from the configured members and invite
// codes. onRegister/onConsume are invoked after an in-memory mutation so the
// caller can persist the change back to config (hub.persistConfig); either
// may be nil.
func NewRegistry(members []*Member, codes []*InviteCode, onRegister func(*Member), onConsume func(string)) *Registry {
	r := &Registry{
		members:     make(map[string]*Member, len(members)),
		inviteCodes: codes,
		onRegister:  onRegister,
		onConsume:   onConsume,
	}
	for _, m := range members {
		r.members[strings.ToLower(m.Email)] = m
	}
	return r
}

// Identify returns the Member for address (case-insensitive), or nil if the
// sender is unknown (§4.5.1 identify).
func (r *Registry) Identify(address string) *Member {
	return r.members[strings.ToLower(strings.TrimSpace(address))]
}

// Register adds addr as a trusted member (self-registration via invite
// code, §4.5.4 step 1) and notifies onRegister for persistence.
func (r *Registry) Register(addr, name string) *Member {
	m := &Member{
		ID:    "trusted_" + sanitizeKey(addr),
		Name:  name,
		Email: addr,
		Role:  RoleTrusted,
	}
	r.members[strings.ToLower(addr)] = m
	if r.onRegister != nil {
		r.onRegister(m)
	}
	return m
}

// RegisteredNonTrustedNames returns the display names of every member whose
// role is not "trusted" — used to populate the capability card's
// registered_members field (§4.5.4 step 3).
func (r *Registry) RegisteredNonTrustedNames() []string {
	var names []string
	for _, m := range r.members {
		if m.Role != RoleTrusted {
			names = append(names, m.Name)
		}
	}
	return names
}

func sanitizeKey(addr string) string {
	var b strings.Builder
	for _, r := range addr {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
