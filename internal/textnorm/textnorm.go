// Package textnorm canonicalizes transcripts before scoring so ground truth
// and machine output are compared on the same footing.
package textnorm

import (
	"regexp"
	"strings"
)

// asidePattern matches bracketed asides such as "(laughs)" or "[music]".
// Mixed delimiters like "(...]" are intentionally matched too.
var asidePattern = regexp.MustCompile(`[\(\[].*?[\)\]]`)

// fillers are removed as plain substrings, in this order. Whole-word matching
// is not used, so "Umbrella" loses its "Um".
var fillers = []string{
	"Um", " um", "Uh", "uh", "Umm", "umm", "Mmm", "mmm", "Ah", "ah",
	",", ".", ";", `"`, ":",
}

var dashReplacer = strings.NewReplacer(
	"â€”", " ", // em dash decoded as Windows-1252
	"—", " ",
	"–", " ",
	"-", " ",
)

// maxPasses bounds the fixed-point loop; every pass either shortens the text
// or leaves it unchanged, so this is never reached on real input.
const maxPasses = 64

// Normalize strips asides, fillers and punctuation, turns dashes into spaces,
// and collapses whitespace. It repeats the pipeline until the output stops
// changing, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	current := text
	for range maxPasses {
		next := pass(current)
		if next == current {
			return next
		}
		current = next
	}
	return current
}

// StripAsides removes bracketed asides and trims the result.
func StripAsides(text string) string {
	return strings.TrimSpace(asidePattern.ReplaceAllString(text, ""))
}

func pass(text string) string {
	text = asidePattern.ReplaceAllString(text, "")
	for _, filler := range fillers {
		text = strings.ReplaceAll(text, filler, "")
	}
	text = dashReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
