package textutil

import (
	"strings"
	"unicode"
)

// JobToken lowercases value into the job-name alphabet accepted by
// Amazon Transcribe ([0-9a-z._-]). Other runes become '_', runs of '_'
// collapse, and edge separators are trimmed. Empty results give "unknown".
func JobToken(value string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_-.")
	if out == "" {
		return "unknown"
	}
	return out
}

// objectNameDrop lists characters object stores reject or require escaping
// for; they are removed from training-data object names.
const objectNameDrop = "\\{}^%`[]<>#|\"?*:~"

// ObjectName turns a keyword page title into a single storage path segment:
// slashes become '_', unsafe and control characters are dropped and leading
// dots are trimmed so the name cannot walk out of its prefix.
func ObjectName(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r == '/':
			b.WriteByte('_')
		case unicode.IsControl(r), strings.ContainsRune(objectNameDrop, r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}
