package transport

import "strings"

// BuildReferences joins prior outbound Message-IDs for a thread into the
// space-separated References header value (§6.1).
func BuildReferences(priorMessageIDs []string) string {
	return strings.Join(priorMessageIDs, " ")
}
