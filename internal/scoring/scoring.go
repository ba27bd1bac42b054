// Package scoring defines the word error rate contract shared by the external
// wer tool and the in-process diff engine.
package scoring

import (
	"context"
	"strings"
)

// Markers delimit error spans inside an annotated reference.
type Markers struct {
	Begin string
	End   string
}

// ANSIRed is the convention used by the asr-evaluation wer tool: reference
// words the hypothesis got wrong are printed in red.
var ANSIRed = Markers{Begin: "\x1b[31m", End: "\x1b[0m"}

// Result is one scoring outcome. WER is a percentage (33.333 means 33.333%).
type Result struct {
	WER                float64
	AnnotatedReference string
	Markers            Markers
}

// Backend computes WER for a reference/hypothesis pair.
type Backend interface {
	Score(ctx context.Context, reference, hypothesis string) (Result, error)
}

var prepareReplacer = strings.NewReplacer(".", "", ",", "", "\r", " ", "\n", " ")

// PrepareText removes periods, commas and line breaks before scoring.
func PrepareText(text string) string {
	return prepareReplacer.Replace(text)
}
