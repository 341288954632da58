package identity

import (
	"regexp"
	"strings"
	"time"
)

// InviteCode is a self-registration gate record (§4.5.4).
type InviteCode struct {
	Code    string
	Expires string // ISO 8601 date, empty if no expiry
	MaxUses int    // 0 means unlimited
	Used    int
}

var inviteSubjectPattern = regexp.MustCompile(`(?i)\[AIMP-INVITE:([^\]]+)\]`)

// ExtractInviteCode returns the code embedded in subject, and whether one
// was found (§4.5.4, §6.1: "Invite message ⇔ subject matches regex
// \[AIMP-INVITE:([^\]]+)\]").
func ExtractInviteCode(subject string) (string, bool) {
	m := inviteSubjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidateInviteCode returns the matching code record, or nil if code is
// unknown, expired, or exhausted (§4.5.4 validation rules). today is injected
// so callers can test expiry deterministically.
func (r *Registry) ValidateInviteCode(code string, today time.Time) *InviteCode {
	for _, ic := range r.inviteCodes {
		if ic.Code != code {
			continue
		}
		if ic.Expires != "" {
			expires, err := time.Parse("2006-01-02", ic.Expires)
			todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
			if err == nil && todayDate.After(expires) {
				return nil
			}
		}
		if ic.MaxUses > 0 && ic.Used >= ic.MaxUses {
			return nil
		}
		return ic
	}
	return nil
}

// ConsumeInviteCode increments the matching code's usage counter and
// notifies onConsume for persistence (§4.5.4 step 2).
func (r *Registry) ConsumeInviteCode(code string) {
	for _, ic := range r.inviteCodes {
		if ic.Code == code {
			ic.Used++
			break
		}
	}
	if r.onConsume != nil {
		r.onConsume(code)
	}
}

// DisplayNameOrLocalPart returns name if non-empty, else the capitalized
// local-part of addr (§4.5.4: "sender's display-name or email local-part").
func DisplayNameOrLocalPart(name, addr string) string {
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(addr, "@")
	if local == "" {
		return addr
	}
	return strings.ToUpper(local[:1]) + local[1:]
}
