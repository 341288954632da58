// Package hub wires the store, transport, oracle, identity registry, and
// poll loop together into one running hub process, and owns the
// configuration surface described in spec §6.5.
package hub

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// HubConfig is the `hub` top-level configuration block (§6.5): transport
// endpoint and credentials.
type HubConfig struct {
	Email           string `yaml:"Email,omitempty"`
	IMAPServer      string `yaml:"IMAPServer,omitempty"`
	IMAPPort        int    `yaml:"IMAPPort,omitempty"`
	SMTPServer      string `yaml:"SMTPServer,omitempty"`
	SMTPPort        int    `yaml:"SMTPPort,omitempty"`
	AuthType        string `yaml:"AuthType,omitempty"` // "basic" | "oauth2"
	Password        string `yaml:"Password,omitempty"`
	OAuthClientID   string `yaml:"OAuthClientID,omitempty"`
	OAuthClientSec  string `yaml:"OAuthClientSecret,omitempty"`
	OAuthRefresh    string `yaml:"OAuthRefreshToken,omitempty"`
	SMTPUseStartTLS bool   `yaml:"SMTPUseStartTLS,omitempty"`
	Domain          string `yaml:"Domain,omitempty"`
}

// MemberConfig is one entry of the `members` whitelist (§4.5.1, §6.5).
type MemberConfig struct {
	Name  string `yaml:"Name,omitempty"`
	Email string `yaml:"Email,omitempty"`
	Role  string `yaml:"Role,omitempty"`
}

// InviteCodeConfig is one entry of `invite_codes` (§4.5.4, §6.5).
type InviteCodeConfig struct {
	Code    string `yaml:"Code,omitempty"`
	Expires string `yaml:"Expires,omitempty"`
	MaxUses int    `yaml:"MaxUses,omitempty"`
	Used    int    `yaml:"Used,omitempty"`
}

// ContactConfig is one entry of the `contacts` name-to-address book (§4.5.2,
// §6.5).
type ContactConfig struct {
	HasAgent   bool   `yaml:"HasAgent,omitempty"`
	AgentEmail string `yaml:"AgentEmail,omitempty"`
	HumanEmail string `yaml:"HumanEmail,omitempty"`
}

// LLMConfig binds the oracle to a concrete provider (§6.3, §6.5).
type LLMConfig struct {
	Provider  string `yaml:"Provider,omitempty"`
	Model     string `yaml:"Model,omitempty"`
	APIKeyEnv string `yaml:"APIKeyEnv,omitempty"`
	BaseURL   string `yaml:"BaseURL,omitempty"`
}

// Config is the full top-level configuration document (§6.5).
type Config struct {
	Hub                HubConfig                `yaml:"Hub"`
	Members            map[string]MemberConfig  `yaml:"Members,omitempty"`
	InviteCodes        []InviteCodeConfig       `yaml:"InviteCodes,omitempty"`
	Contacts           map[string]ContactConfig `yaml:"Contacts,omitempty"`
	LLM                LLMConfig                `yaml:"LLM"`
	PollIntervalSecond int                      `yaml:"PollIntervalSeconds,omitempty"`
	MaxRounds          int                      `yaml:"MaxRounds,omitempty"`
	NotifyMode         string                   `yaml:"NotifyMode,omitempty"` // "email" | "stdout"
	DatabasePath       string                   `yaml:"DatabasePath,omitempty"`

	path string // source file, used by persistConfig
}

// ConfigError is fatal at startup (§7): the process refuses to run.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}
func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError is fatal at startup (§7): credentials are missing or invalid.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string { return "auth: " + e.Detail }

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "path", Err: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Field: "yaml", Err: err}
	}
	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollIntervalSecond == 0 {
		c.PollIntervalSecond = 30
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = 5
	}
	if c.NotifyMode == "" {
		c.NotifyMode = "stdout"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "aimphub.db"
	}
	if c.Hub.AuthType == "" {
		c.Hub.AuthType = "basic"
	}
}

func (c *Config) validate() error {
	if c.Hub.Email == "" {
		return &ConfigError{Field: "hub.email", Err: fmt.Errorf("required")}
	}
	if c.Hub.IMAPServer == "" || c.Hub.SMTPServer == "" {
		return &ConfigError{Field: "hub.imap_server/smtp_server", Err: fmt.Errorf("required")}
	}
	switch c.Hub.AuthType {
	case "basic":
		if c.Hub.Password == "" {
			return &AuthError{Detail: "hub.password required for basic auth"}
		}
	case "oauth2":
		if c.Hub.OAuthClientID == "" || c.Hub.OAuthRefresh == "" {
			return &AuthError{Detail: "hub.oauth_client_id and hub.oauth_refresh_token required for oauth2 auth"}
		}
	default:
		return &ConfigError{Field: "hub.auth_type", Err: fmt.Errorf("must be basic or oauth2, got %q", c.Hub.AuthType)}
	}
	if c.LLM.Provider == "" {
		return &ConfigError{Field: "llm.provider", Err: fmt.Errorf("required")}
	}
	switch c.NotifyMode {
	case "email", "stdout":
	default:
		return &ConfigError{Field: "notify_mode", Err: fmt.Errorf("must be email or stdout, got %q", c.NotifyMode)}
	}
	return nil
}
