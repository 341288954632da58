package transport

import (
	"fmt"
	"regexp"
)

var (
	sessionSubjectPattern = regexp.MustCompile(`\[AIMP:([^\]]+)\]`)
	roomSubjectPattern    = regexp.MustCompile(`(?i)\[AIMP:Room:([^\]]+)\]`)
)

// ClassifyRoomID extracts a room id from subject, if present. Checked before
// ClassifySessionID since both patterns share the "[AIMP:" prefix (§6.1).
func ClassifyRoomID(subject string) (string, bool) {
	m := roomSubjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ClassifySessionID extracts a session id from subject, if present and the
// subject is not actually a Room reference (§6.1).
func ClassifySessionID(subject string) (string, bool) {
	if _, ok := ClassifyRoomID(subject); ok {
		return "", false
	}
	m := sessionSubjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SessionSubject builds the outbound subject for a Session message (§6.1).
func SessionSubject(sessionID string, version int, topic string) string {
	return fmt.Sprintf("[AIMP:%s] v%d %s", sessionID, version, topic)
}

// RoomSubject builds the outbound subject for a Room message (§6.1).
func RoomSubject(roomID, topicSuffix string) string {
	return fmt.Sprintf("[AIMP:Room:%s] %s", roomID, topicSuffix)
}

// IsAIMPSessionMessage reports whether parsed classifies as an AIMP session
// message: subject carries [AIMP:<id>] and a protocol.json attachment is
// present (§6.1).
func IsAIMPSessionMessage(p ParsedEmail) (sessionID string, ok bool) {
	id, matched := ClassifySessionID(p.Subject)
	if !matched {
		return "", false
	}
	if _, hasAttachment := p.ProtocolAttachment(); !hasAttachment {
		return "", false
	}
	return id, true
}

// IsAIMPRoomMessage reports whether parsed classifies as an AIMP room
// message (§6.1: subject contains [AIMP:Room:<id>], no attachment required).
func IsAIMPRoomMessage(p ParsedEmail) (roomID string, ok bool) {
	return ClassifyRoomID(p.Subject)
}
