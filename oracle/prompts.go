package oracle

import (
	"fmt"
	"strings"
)

const systemPromptJSON = "You are the negotiation oracle for an email-based meeting and document coordination hub. " +
	"Respond with exactly one JSON object matching the requested schema, and nothing else."

func formatCurrentOptions(options map[string][]string) string {
	var b strings.Builder
	for item, opts := range options {
		fmt.Fprintf(&b, "- %s: %s\n", item, strings.Join(opts, ", "))
	}
	return b.String()
}

func humanReplyPrompt(body string, options map[string][]string) string {
	return fmt.Sprintf(
		"A participant replied to a scheduling negotiation.\n\nCurrent options:\n%s\nReply body:\n%s\n\n"+
			"Return JSON: {\"votes\": {item: choice or null}, \"unclear\": string or null, \"action\": \"accept\"|\"counter\"|\"escalate\"}.",
		formatCurrentOptions(options), body,
	)
}

func memberRequestPrompt(memberName, subject, body string) string {
	return fmt.Sprintf(
		"Member %q sent this request.\n\nSubject: %s\nBody:\n%s\n\n"+
			"Return JSON: {\"action\": \"schedule_meeting\"|\"create_room\"|\"unclear\", \"topic\": string or null, "+
			"\"participants\": [string], \"deadline\": string (optional), \"initial_proposal\": string (optional), "+
			"\"resolution_rules\": string (optional), \"missing\": [string]}.",
		memberName, subject, body,
	)
}

func formatArtifacts(artifacts map[string]string) string {
	var b strings.Builder
	for name, content := range artifacts {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", name, content)
	}
	return b.String()
}

func amendmentPrompt(memberName, body string, artifacts map[string]string) string {
	return fmt.Sprintf(
		"Member %q sent this message about a document under negotiation.\n\nCurrent artifacts:\n%s\nMessage body:\n%s\n\n"+
			"Return JSON: {\"action\": \"PROPOSE\"|\"AMEND\"|\"ACCEPT\"|\"REJECT\", \"changes\": string, "+
			"\"reason\": string, \"new_content\": string or null}.",
		memberName, formatArtifacts(artifacts), body,
	)
}

func formatTranscript(transcript []TranscriptEntry) string {
	var b strings.Builder
	for _, e := range transcript {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.From, e.Action, e.Summary)
	}
	return b.String()
}

func aggregatePrompt(topic string, transcript []TranscriptEntry, deadline int64) string {
	return fmt.Sprintf(
		"Topic: %s\nDeadline (epoch seconds): %d\n\nTranscript:\n%s\n\n"+
			"Return JSON: {\"current_proposal\": string, \"conflicts\": [string], \"ready_to_finalize\": bool, \"summary\": string}.",
		topic, deadline, formatTranscript(transcript),
	)
}

func minutesPrompt(topic string, transcript []TranscriptEntry, resolution map[string]string, participants []string) string {
	var resolved strings.Builder
	for item, choice := range resolution {
		fmt.Fprintf(&resolved, "- %s: %s\n", item, choice)
	}
	return fmt.Sprintf(
		"Write Markdown meeting minutes for %q.\n\nParticipants: %s\n\nResolution:\n%s\nTranscript:\n%s\n\n"+
			"Respond with Markdown only, no JSON.",
		topic, strings.Join(participants, ", "), resolved.String(), formatTranscript(transcript),
	)
}

// fallbackMinutes implements the deterministic template used when minutes
// generation fails (§4.4.3).
func fallbackMinutes(topic string, transcript []TranscriptEntry, resolution map[string]string, participants []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Minutes: %s\n\n", topic)
	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(participants, ", "))
	b.WriteString("## Resolution\n\n")
	for item, choice := range resolution {
		fmt.Fprintf(&b, "- **%s**: %s\n", item, choice)
	}
	b.WriteString("\n## Transcript\n\n")
	for _, e := range transcript {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", e.From, e.Action, e.Summary)
	}
	return b.String()
}
