// Package keywords maintains the learned keyword corpus that feeds CLM
// training data acquisition, and defines the noun extraction contract used to
// turn missed words into keywords.
//
// The store assumes a single writer per storage root; the CLI serializes runs
// with a lock file.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clmeval/internal/storage"
)

// Separator joins keywords in the persisted file.
const Separator = ", "

// Extractor returns the nouns (common and proper) found in text.
type Extractor interface {
	ExtractNouns(ctx context.Context, text string) ([]string, error)
}

// Store reads and rewrites keywords/learned_keywords.txt.
type Store struct {
	store storage.Store
	key   string
}

// NewStore returns a keyword store on the default learned keywords key.
func NewStore(store storage.Store) *Store {
	return &Store{store: store, key: storage.LearnedKeywordsKey}
}

// Key returns the object key holding the corpus.
func (s *Store) Key() string { return s.key }

// Load returns the current corpus. A missing file is an empty corpus.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	text, err := storage.ReadText(ctx, s.store, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	corpus := make(map[string]struct{})
	for _, part := range strings.Split(text, ",") {
		if word := Capitalize(part); word != "" {
			corpus[word] = struct{}{}
		}
	}
	return corpus, nil
}

// MergeAndSave capitalizes words, unions them with the stored corpus and
// rewrites the file. It returns how many keywords were new.
func (s *Store) MergeAndSave(ctx context.Context, words []string) (int, error) {
	corpus, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, w := range words {
		word := Capitalize(w)
		if word == "" {
			continue
		}
		if _, ok := corpus[word]; ok {
			continue
		}
		corpus[word] = struct{}{}
		added++
	}
	if err := storage.WriteText(ctx, s.store, s.key, Format(corpus)); err != nil {
		return 0, fmt.Errorf("save keywords: %w", err)
	}
	return added, nil
}

// Format renders the corpus sorted and comma separated.
func Format(corpus map[string]struct{}) string {
	words := make([]string, 0, len(corpus))
	for w := range corpus {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, Separator)
}

// Capitalize trims the word and returns it with the first letter upper case
// and the rest lower case ("kubernetes" and "KUBERNETES" both give "Kubernetes").
// Only the first rune of a phrase is raised: "new york" gives "New york".
func Capitalize(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	// A Caser carries state, so one is built per call.
	lower := cases.Lower(language.English).String(word)
	_, size := utf8.DecodeRuneInString(lower)
	return cases.Upper(language.English).String(lower[:size]) + lower[size:]
}
