package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestClassifySessionID(t *testing.T) {
	id, ok := ClassifySessionID("[AIMP:sess-1] v2 lunch plans")
	require.True(t, ok)
	assert.Equal(t, "sess-1", id)
}

func TestClassifySessionIDFalseForRoomSubject(t *testing.T) {
	_, ok := ClassifySessionID("[AIMP:Room:room-1] budget doc")
	assert.False(t, ok)
}

func TestClassifyRoomID(t *testing.T) {
	id, ok := ClassifyRoomID("[AIMP:Room:room-1] budget doc")
	require.True(t, ok)
	assert.Equal(t, "room-1", id)
}

func TestIsAIMPSessionMessageRequiresAttachment(t *testing.T) {
	p := ParsedEmail{Subject: "[AIMP:sess-1] v2 lunch plans"}
	_, ok := IsAIMPSessionMessage(p)
	assert.False(t, ok, "no protocol.json attachment")

	p.Attachments = []Attachment{{Filename: "protocol.json", Content: []byte("{}")}}
	id, ok := IsAIMPSessionMessage(p)
	assert.True(t, ok)
	assert.Equal(t, "sess-1", id)
}

func TestSessionSubjectAndRoomSubjectFormat(t *testing.T) {
	assert.Equal(t, "[AIMP:sess-1] v3 lunch plans", SessionSubject("sess-1", 3, "lunch plans"))
	assert.Equal(t, "[AIMP:Room:room-1] budget doc — amended", RoomSubject("room-1", "budget doc — amended"))
}

func TestMessageIDFormat(t *testing.T) {
	id := MessageID("hub.example.com", "sess-1", 2, mustParseTime(t, "2026-01-01T00:00:00Z"))
	assert.Regexp(t, `^<aimp-sess-1-v2-\d+@hub\.example\.com>$`, id)
}

func TestBuildReferences(t *testing.T) {
	assert.Equal(t, "<a@h> <b@h>", BuildReferences([]string{"<a@h>", "<b@h>"}))
	assert.Equal(t, "", BuildReferences(nil))
}
