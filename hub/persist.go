package hub

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/wanqianwin-jpg/aimp/identity"
)

// persistMember writes a newly self-registered trusted member back to the
// config file's members block (§4.5.4 step 1, grounded in the original
// hub's _persist_config).
func (h *Hub) persistMember(m *identity.Member) error {
	h.Config.Members[m.ID] = MemberConfig{Name: m.Name, Email: m.Email, Role: m.Role}
	return h.persistConfig()
}

// persistInviteUsage writes the incremented used counter for code back to
// disk (§4.5.4 step 2).
func (h *Hub) persistInviteUsage(code string) error {
	for i, c := range h.Config.InviteCodes {
		if c.Code == code {
			h.Config.InviteCodes[i].Used++
			break
		}
	}
	return h.persistConfig()
}

// persistConfig re-reads the on-disk document, overlays the in-memory
// members/invite_codes, and writes it back — preserving any keys this
// process does not model, matching the original's read-modify-write pattern.
func (h *Hub) persistConfig() error {
	if h.Config.path == "" {
		return nil // loaded without a source file (e.g. tests): nothing to persist
	}
	raw := map[string]any{}
	data, err := os.ReadFile(h.Config.path)
	if err == nil {
		_ = yaml.Unmarshal(data, &raw)
	}
	raw["Members"] = h.Config.Members
	raw["InviteCodes"] = h.Config.InviteCodes

	out, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(h.Config.path, out, 0o644)
}
