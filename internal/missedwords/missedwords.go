// Package missedwords pulls the reference words a transcription got wrong out
// of a scorer's annotated reference.
package missedwords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"clmeval/internal/scoring"
)

// MaxSpans caps how many marker pairs are examined per annotation.
const MaxSpans = 100

// Extract scans annotated for Begin...End spans, cleans each candidate and
// returns the distinct non-stopword results in sorted order. Malformed input
// never fails: scanning stops at a begin marker with no matching end.
func Extract(annotated string, markers scoring.Markers) []string {
	if markers.Begin == "" || markers.End == "" {
		return nil
	}
	seen := make(map[string]struct{})
	pos := 0
	for spans := 0; spans < MaxSpans; spans++ {
		begin := strings.Index(annotated[pos:], markers.Begin)
		if begin < 0 {
			break
		}
		start := pos + begin + len(markers.Begin)
		end := strings.Index(annotated[start:], markers.End)
		if end < 0 {
			break
		}
		if word, ok := clean(annotated[start : start+end]); ok && !IsStopword(word) {
			seen[word] = struct{}{}
		}
		pos = start + end + len(markers.End)
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// clean drops insertion placeholders, punctuation-terminated fragments and
// words shorter than three characters, and lowercases the rest.
func clean(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	switch {
	case strings.Contains(candidate, "*"):
		return "", false
	case strings.HasSuffix(candidate, "."), strings.HasSuffix(candidate, ","):
		return "", false
	case utf8.RuneCountInString(candidate) < 3:
		return "", false
	}
	return strings.ToLower(candidate), true
}
