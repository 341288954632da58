package oracle

import (
	"context"
	"fmt"
)

// completer is the single primitive both provider backends implement: send
// a system + user prompt, get back the raw assistant text. Every §6.3
// operation is built on top of this one call.
type completer interface {
	complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// base implements the five §6.3 operations in terms of a completer,
// shared by both the Anthropic and OpenAI backends.
type base struct {
	completer
}

func (b *base) ParseHumanReply(ctx context.Context, body string, currentOptions map[string][]string) (*HumanReplyResult, error) {
	text, err := b.complete(ctx, systemPromptJSON, humanReplyPrompt(body, currentOptions))
	if err != nil {
		return nil, &Error{Operation: "parse_human_reply", Err: err}
	}
	var result HumanReplyResult
	if err := extractJSON(text, &result); err != nil {
		return nil, &Error{Operation: "parse_human_reply", Err: err}
	}
	return &result, nil
}

func (b *base) ParseMemberRequest(ctx context.Context, memberName, subject, body string) (*MemberRequestResult, error) {
	text, err := b.complete(ctx, systemPromptJSON, memberRequestPrompt(memberName, subject, body))
	if err != nil {
		return nil, &Error{Operation: "parse_member_request", Err: err}
	}
	var result MemberRequestResult
	if err := extractJSON(text, &result); err != nil {
		return nil, &Error{Operation: "parse_member_request", Err: err}
	}
	return &result, nil
}

// ParseAmendment falls back to a deterministic AMEND classification on any
// oracle failure (parse error or transport error alike), per §4.4.3: "LLM
// failure on room amendment parsing: default to AMEND with the body
// truncated as the change summary and new_content = null."
func (b *base) ParseAmendment(ctx context.Context, memberName, body string, currentArtifacts map[string]string) (*AmendmentResult, error) {
	text, err := b.complete(ctx, systemPromptJSON, amendmentPrompt(memberName, body, currentArtifacts))
	if err != nil {
		return fallbackAmendment(body), nil
	}
	var result AmendmentResult
	if err := extractJSON(text, &result); err != nil {
		return fallbackAmendment(body), nil
	}
	return &result, nil
}

func fallbackAmendment(body string) *AmendmentResult {
	return &AmendmentResult{
		Action:     "AMEND",
		Changes:    truncate(body, 200),
		Reason:     "oracle unavailable, fell back to raw body",
		NewContent: nil,
	}
}

func (b *base) AggregateAmendments(ctx context.Context, topic string, transcript []TranscriptEntry, deadline int64) (*AggregateResult, error) {
	text, err := b.complete(ctx, systemPromptJSON, aggregatePrompt(topic, transcript, deadline))
	if err != nil {
		return nil, &Error{Operation: "aggregate_amendments", Err: err}
	}
	var result AggregateResult
	if err := extractJSON(text, &result); err != nil {
		return nil, &Error{Operation: "aggregate_amendments", Err: err}
	}
	return &result, nil
}

// GenerateMinutes falls back to the deterministic template on any oracle
// failure (§4.4.3: "LLM failure on minutes generation: use the deterministic
// fallback template").
func (b *base) GenerateMinutes(ctx context.Context, topic string, transcript []TranscriptEntry, resolution map[string]string, participants []string) (string, error) {
	text, err := b.complete(ctx, "You write concise Markdown meeting minutes.", minutesPrompt(topic, transcript, resolution, participants))
	if err != nil {
		return fallbackMinutes(topic, transcript, resolution, participants), nil
	}
	if text == "" {
		return "", fmt.Errorf("oracle: empty minutes response")
	}
	return text, nil
}
