package identity

import (
	"strings"

	"github.com/gobwas/glob"
)

// autoReplyLocalParts is the local-part set checked both for exact match and
// substring containment (§4.5.3).
var autoReplyLocalParts = []string{
	"no-reply", "noreply", "mailer-daemon", "postmaster", "bounce", "bounces",
	"do-not-reply", "donotreply", "auto-reply", "autoreply", "notifications", "notification",
}

// autoReplySubjectPrefixes is the case-insensitive, trimmed subject-prefix
// block list (§4.5.3).
var autoReplySubjectPrefixes = []string{
	"out of office", "automatic reply", "auto reply", "autoreply", "undeliverable",
	"delivery status notification", "delivery failure", "mail delivery failed",
	"returned mail", "failure notice",
}

var localPartGlobs = compileLocalPartGlobs()

func compileLocalPartGlobs() []glob.Glob {
	globs := make([]glob.Glob, len(autoReplyLocalParts))
	for i, p := range autoReplyLocalParts {
		globs[i] = glob.MustCompile("*" + p + "*")
	}
	return globs
}

// IsAutoReplyOrBounce implements the §4.5.3 heuristic filter: a positive
// match means the message should be dropped without reply.
func IsAutoReplyOrBounce(fromAddress, subject string) bool {
	local, _, _ := strings.Cut(fromAddress, "@")
	local = strings.ToLower(strings.TrimSpace(local))
	for _, g := range localPartGlobs {
		if g.Match(local) {
			return true
		}
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	for _, prefix := range autoReplySubjectPrefixes {
		if strings.HasPrefix(subject, prefix) {
			return true
		}
	}
	return false
}
