package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON implements the lenient parsing rule of §6.3: extract the
// first fenced JSON block, or failing that, the first balanced {...}
// substring, and unmarshal it into v.
func extractJSON(text string, v any) error {
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}
	if block, ok := firstBalancedObject(text); ok {
		if err := json.Unmarshal([]byte(block), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("oracle: no valid JSON object found in response: %s", truncate(text, 200))
}

// firstBalancedObject returns the first top-level {...} substring of text,
// respecting nested braces and braces inside string literals.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
