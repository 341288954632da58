// Package oracle abstracts the LLM invocation boundary described in spec
// §6.3: a pure function (operation, inputs) → structured JSON, backed by an
// Anthropic-compatible or OpenAI-compatible chat completion API.
package oracle

import (
	"context"
	"fmt"
)

// Config binds an Oracle to a concrete provider (§6.3: "{provider, model,
// api_key_env, base_url}").
type Config struct {
	Provider  string // "anthropic" | "openai"
	Model     string
	APIKeyEnv string
	BaseURL   string
}

// HumanReplyResult is the output of ParseHumanReply.
type HumanReplyResult struct {
	Votes   map[string]*string `json:"votes"`
	Unclear *string            `json:"unclear"`
	Action  string             `json:"action"` // accept | counter | escalate
}

// MemberRequestResult is the output of ParseMemberRequest.
type MemberRequestResult struct {
	Action          string   `json:"action"` // schedule_meeting | create_room | unclear
	Topic           *string  `json:"topic"`
	Participants    []string `json:"participants"`
	Deadline        string   `json:"deadline,omitempty"`
	InitialProposal string   `json:"initial_proposal,omitempty"`
	ResolutionRules string   `json:"resolution_rules,omitempty"`
	Missing         []string `json:"missing"`
}

// AmendmentResult is the output of ParseAmendment.
type AmendmentResult struct {
	Action     string  `json:"action"` // PROPOSE | AMEND | ACCEPT | REJECT
	Changes    string  `json:"changes"`
	Reason     string  `json:"reason"`
	NewContent *string `json:"new_content"`
}

// AggregateResult is the output of AggregateAmendments.
type AggregateResult struct {
	CurrentProposal string   `json:"current_proposal"`
	Conflicts       []string `json:"conflicts"`
	ReadyToFinalize bool     `json:"ready_to_finalize"`
	Summary         string   `json:"summary"`
}

// TranscriptEntry is the minimal shape the oracle needs from a Session
// history entry or Room transcript entry when building prompts.
type TranscriptEntry struct {
	From    string
	Action  string
	Summary string
}

// Oracle is the LLM boundary. Every method maps to one of the five
// operations in §6.3; generate_minutes returns Markdown rather than JSON.
type Oracle interface {
	ParseHumanReply(ctx context.Context, body string, currentOptions map[string][]string) (*HumanReplyResult, error)
	ParseMemberRequest(ctx context.Context, memberName, subject, body string) (*MemberRequestResult, error)
	ParseAmendment(ctx context.Context, memberName, body string, currentArtifacts map[string]string) (*AmendmentResult, error)
	AggregateAmendments(ctx context.Context, topic string, transcript []TranscriptEntry, deadline int64) (*AggregateResult, error)
	GenerateMinutes(ctx context.Context, topic string, transcript []TranscriptEntry, resolution map[string]string, participants []string) (string, error)
}

// New constructs the Oracle backend named by cfg.Provider.
func New(cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case "anthropic", "":
		return NewAnthropic(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("oracle: unknown provider %q", cfg.Provider)
	}
}
