package hub

import "strings"

// ContactResolver implements poll.Resolver via the three-step lookup in
// §4.5.2: hub members, then the contacts book, then a bare address literal.
type ContactResolver struct {
	members  map[string]string // display name (lowercased) -> address
	contacts map[string]ContactConfig
}

// NewContactResolver builds a resolver from the loaded member and contact
// configuration.
func NewContactResolver(members map[string]MemberConfig, contacts map[string]ContactConfig) *ContactResolver {
	r := &ContactResolver{
		members:  make(map[string]string, len(members)),
		contacts: contacts,
	}
	for _, m := range members {
		if m.Name != "" {
			r.members[strings.ToLower(m.Name)] = m.Email
		}
	}
	return r
}

// Resolve implements poll.Resolver.
func (r *ContactResolver) Resolve(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if addr, ok := r.members[key]; ok {
		return addr, true
	}
	for contactName, c := range r.contacts {
		if strings.ToLower(contactName) != key {
			continue
		}
		if c.HasAgent && c.AgentEmail != "" {
			return c.AgentEmail, true
		}
		if c.HumanEmail != "" {
			return c.HumanEmail, true
		}
	}
	if looksLikeAddress(name) {
		return name, true
	}
	return "", false
}

func looksLikeAddress(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}
