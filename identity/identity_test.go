package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 6: auto-reply filter.
func TestIsAutoReplyOrBounceMatchesLocalPartSet(t *testing.T) {
	for _, local := range autoReplyLocalParts {
		assert.True(t, IsAutoReplyOrBounce(local+"@example.com", "hello"), local)
	}
}

func TestIsAutoReplyOrBounceMatchesSubjectPrefixes(t *testing.T) {
	for _, prefix := range autoReplySubjectPrefixes {
		assert.True(t, IsAutoReplyOrBounce("alice@example.com", prefix+": I'm away"), prefix)
	}
}

func TestIsAutoReplyOrBounceFalseForPlausibleHuman(t *testing.T) {
	assert.False(t, IsAutoReplyOrBounce("alice@example.com", "Re: meeting"))
}

func TestIsAutoReplyOrBounceMatchesSubstringVariant(t *testing.T) {
	assert.True(t, IsAutoReplyOrBounce("support-noreply-list@example.com", "hello"))
}

// Property 7: invite code validation.
func TestValidateInviteCodeRejectsUnknown(t *testing.T) {
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026"}}, nil, nil)
	assert.Nil(t, r.ValidateInviteCode("missing", time.Now()))
}

func TestValidateInviteCodeRejectsExpired(t *testing.T) {
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026", Expires: "2020-01-01"}}, nil, nil)
	assert.Nil(t, r.ValidateInviteCode("open2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidateInviteCodeAcceptsSameDayAsExpiryRegardlessOfTimeOfDay(t *testing.T) {
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026", Expires: "2026-03-05"}}, nil, nil)
	assert.NotNil(t, r.ValidateInviteCode("open2026", time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC)))
}

func TestValidateInviteCodeRejectsDayAfterExpiry(t *testing.T) {
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026", Expires: "2026-03-05"}}, nil, nil)
	assert.Nil(t, r.ValidateInviteCode("open2026", time.Date(2026, 3, 6, 0, 0, 1, 0, time.UTC)))
}

func TestValidateInviteCodeRejectsExhausted(t *testing.T) {
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026", MaxUses: 1, Used: 1}}, nil, nil)
	assert.Nil(t, r.ValidateInviteCode("open2026", time.Now()))
}

func TestValidateInviteCodeAcceptedExactlyOnceWithMaxUsesOne(t *testing.T) {
	var persisted string
	r := NewRegistry(nil, []*InviteCode{{Code: "open2026", MaxUses: 1}}, nil, func(code string) { persisted = code })

	ic := r.ValidateInviteCode("open2026", time.Now())
	require.NotNil(t, ic)
	r.ConsumeInviteCode("open2026")
	assert.Equal(t, "open2026", persisted)

	assert.Nil(t, r.ValidateInviteCode("open2026", time.Now()))
}

func TestExtractInviteCode(t *testing.T) {
	code, ok := ExtractInviteCode("[AIMP-INVITE:open2026]")
	require.True(t, ok)
	assert.Equal(t, "open2026", code)

	_, ok = ExtractInviteCode("Re: lunch plans")
	assert.False(t, ok)
}

func TestRegistryIdentifyIsCaseInsensitive(t *testing.T) {
	r := NewRegistry([]*Member{{ID: "m1", Name: "Alice", Email: "Alice@Example.com", Role: RoleMember}}, nil, nil, nil)
	m := r.Identify("alice@example.com")
	require.NotNil(t, m)
	assert.Equal(t, "Alice", m.Name)
}

func TestRegistryRegisterAddsTrustedMember(t *testing.T) {
	var registered *Member
	r := NewRegistry(nil, nil, func(m *Member) { registered = m }, nil)
	m := r.Register("stranger@example.com", "Stranger")
	require.NotNil(t, registered)
	assert.Equal(t, RoleTrusted, m.Role)
	assert.NotNil(t, r.Identify("stranger@example.com"))
}

func TestDisplayNameOrLocalPartFallsBackAndCapitalizes(t *testing.T) {
	assert.Equal(t, "Given", DisplayNameOrLocalPart("Given", "x@example.com"))
	assert.Equal(t, "Bob", DisplayNameOrLocalPart("", "bob@example.com"))
}

func TestStrangerThrottleOncePerWindow(t *testing.T) {
	th := NewStrangerThrottle(24 * time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, th.ShouldNotify("x@example.com", now))
	assert.False(t, th.ShouldNotify("x@example.com", now.Add(time.Hour)))
	assert.True(t, th.ShouldNotify("x@example.com", now.Add(25*time.Hour)))
}
