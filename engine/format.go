package engine

import "fmt"

// Pure email-body/notification formatters for Session and Room transitions.
// Kept separate from the round-transition logic in session_engine.go and
// room_engine.go so the state-machine code stays free of presentation
// strings (spec.md §1's core/presentation scope boundary) — these are the
// only functions in the engine package that build human-readable text.

func sessionConfirmedBody(topic string) string {
	return fmt.Sprintf("The negotiation for %q is confirmed. Final schedule attached.", topic)
}

func sessionConfirmedNotification(sessionID, topic string) string {
	return fmt.Sprintf("session %s confirmed: %s", sessionID, topic)
}

func sessionEscalatedHistorySummary(maxRounds int) string {
	return fmt.Sprintf("stalled after %d rounds", maxRounds)
}

func sessionEscalatedNotification(sessionID string, maxRounds int, topic string) string {
	return fmt.Sprintf("session %s escalated after %d rounds without consensus: %s", sessionID, maxRounds, topic)
}

func sessionCounterHistorySummary(round int) string {
	return fmt.Sprintf("round %d summary", round)
}

func sessionCounterBody(topic string, round int) string {
	return fmt.Sprintf("Negotiation for %q continues (round %d). Please review and reply with your vote.", topic, round)
}

func roomDigestBody(currentProposal, summary string) string {
	return fmt.Sprintf("Current proposal:\n\n%s\n\n%s", currentProposal, summary)
}

func roomFinalizedBody(minutes string) string {
	return minutes + "\n\nReply CONFIRM to accept, or REJECT <reason> to raise a concern."
}

func roomFallbackMinutes(topic string) string {
	return fmt.Sprintf("# Minutes: %s\n\n(minutes generation failed; see transcript)", topic)
}

const roomConfirmAckBody = "Thanks, your confirmation has been recorded."

func roomVetoEscalationBody(from, reason string) string {
	return fmt.Sprintf("%s vetoed the finalized outcome: %s\n\nChoices: re-open the room, or keep the current minutes.", from, reason)
}

const roomVetoAckBody = "Your veto has been recorded and sent to the room's initiator."
