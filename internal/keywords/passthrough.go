package keywords

import (
	"context"
	"strings"
	"unicode"
)

// Passthrough treats every word as a noun. It lets offline runs grow the
// corpus without a part-of-speech service.
type Passthrough struct{}

// ExtractNouns splits text on anything that is not a letter, digit or
// apostrophe and returns the distinct words in first-seen order.
func (Passthrough) ExtractNouns(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

var _ Extractor = Passthrough{}
