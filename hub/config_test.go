package hub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	return path
}

const minimalConfig = `
Hub:
  Email: hub@example.com
  IMAPServer: imap.example.com
  SMTPServer: smtp.example.com
  Password: secret
LLM:
  Provider: anthropic
  Model: claude-3-5-sonnet
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.PollIntervalSecond)
	assert.Equal(t, 5, cfg.MaxRounds)
	assert.Equal(t, "stdout", cfg.NotifyMode)
	assert.Equal(t, "basic", cfg.Hub.AuthType)
}

func TestLoadConfigRejectsMissingRequiredFields(t *testing.T) {
	path := writeTempConfig(t, "Hub:\n  Email: hub@example.com\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestLoadConfigRejectsBasicAuthWithoutPassword(t *testing.T) {
	path := writeTempConfig(t, `
Hub:
  Email: hub@example.com
  IMAPServer: imap.example.com
  SMTPServer: smtp.example.com
LLM:
  Provider: anthropic
`)
	_, err := LoadConfig(path)
	var aerr *AuthError
	assert.ErrorAs(t, err, &aerr)
}

func TestContactResolverThreeStepLookup(t *testing.T) {
	members := map[string]MemberConfig{"bob": {Name: "Bob", Email: "bob@x.com"}}
	contacts := map[string]ContactConfig{"Carol": {HasAgent: true, AgentEmail: "carol-agent@x.com"}}
	r := NewContactResolver(members, contacts)

	addr, ok := r.Resolve("Bob")
	require.True(t, ok)
	assert.Equal(t, "bob@x.com", addr)

	addr, ok = r.Resolve("Carol")
	require.True(t, ok)
	assert.Equal(t, "carol-agent@x.com", addr)

	addr, ok = r.Resolve("dave@external.com")
	require.True(t, ok)
	assert.Equal(t, "dave@external.com", addr)

	_, ok = r.Resolve("Unknown Person")
	assert.False(t, ok)
}
