// Package diffscore scores transcripts in process by aligning words with
// go-difflib. Alignment follows difflib's matching blocks rather than a
// minimal edit script, so its WER can exceed the wer tool's on heavily
// reordered text.
package diffscore

import (
	"context"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"clmeval/internal/scoring"
)

// InsertionToken stands in for hypothesis words with no reference counterpart.
const InsertionToken = "***"

// Scorer implements scoring.Backend.
type Scorer struct {
	markers scoring.Markers
}

// New returns a scorer that annotates errors with the ANSI red markers.
func New() *Scorer {
	return &Scorer{markers: scoring.ANSIRed}
}

// Score compares lowercased words of reference and hypothesis.
func (s *Scorer) Score(ctx context.Context, reference, hypothesis string) (scoring.Result, error) {
	if err := ctx.Err(); err != nil {
		return scoring.Result{}, err
	}
	ref := words(reference)
	hyp := words(hypothesis)

	matcher := difflib.NewMatcherWithJunk(lower(ref), lower(hyp), false, nil)
	var annotated []string
	errors := 0
	for _, op := range matcher.GetOpCodes() {
		refSpan := ref[op.I1:op.I2]
		hypLen := op.J2 - op.J1
		switch op.Tag {
		case 'e':
			annotated = append(annotated, refSpan...)
		case 'r':
			errors += max(len(refSpan), hypLen)
			annotated = append(annotated, s.mark(refSpan)...)
			for range hypLen - len(refSpan) {
				annotated = append(annotated, s.wrap(InsertionToken))
			}
		case 'd':
			errors += len(refSpan)
			annotated = append(annotated, s.mark(refSpan)...)
		case 'i':
			errors += hypLen
			for range hypLen {
				annotated = append(annotated, s.wrap(InsertionToken))
			}
		}
	}

	return scoring.Result{
		WER:                rate(errors, len(ref)),
		AnnotatedReference: strings.Join(annotated, " "),
		Markers:            s.markers,
	}, nil
}

// rate returns errors per reference word as a percentage. An empty reference
// scores 0 against an empty hypothesis and 100 otherwise.
func rate(errors, refLen int) float64 {
	if refLen == 0 {
		if errors == 0 {
			return 0
		}
		return 100
	}
	return float64(errors) / float64(refLen) * 100
}

func (s *Scorer) mark(span []string) []string {
	out := make([]string, len(span))
	for i, w := range span {
		out[i] = s.wrap(w)
	}
	return out
}

func (s *Scorer) wrap(word string) string {
	return s.markers.Begin + word + s.markers.End
}

func words(text string) []string {
	return strings.Fields(scoring.PrepareText(text))
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, w := range in {
		out[i] = strings.ToLower(w)
	}
	return out
}

var _ scoring.Backend = (*Scorer)(nil)
