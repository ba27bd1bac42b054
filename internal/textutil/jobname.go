package textutil

import "strings"

// MaxJobNameLength caps generated job names to the limit accepted by managed
// transcription services.
const MaxJobNameLength = 200

// JobName joins sanitized tokens with hyphens and truncates the result to
// MaxJobNameLength. The prefix is kept verbatim and is expected to be safe.
func JobName(prefix string, parts ...string) string {
	tokens := make([]string, 0, len(parts)+1)
	if prefix = strings.Trim(prefix, "-"); prefix != "" {
		tokens = append(tokens, prefix)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tokens = append(tokens, JobToken(part))
	}
	name := strings.Join(tokens, "-")
	if len(name) > MaxJobNameLength {
		name = strings.TrimRight(name[:MaxJobNameLength], "-_")
	}
	return name
}
