// Package wercli scores transcripts with the asr-evaluation `wer` tool.
package wercli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"clmeval/internal/scoring"
	"clmeval/internal/services"
)

// DefaultBinary is the executable installed by the asr-evaluation package.
const DefaultBinary = "wer"

// Scorer implements scoring.Backend by shelling out to the wer tool.
type Scorer struct {
	binary        string
	workDir       string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a scorer. An empty binary selects DefaultBinary; an empty
// workDir uses the system temp directory.
func New(binary, workDir string) *Scorer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Scorer{binary: binary, workDir: workDir}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Scorer) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Binary returns the configured executable name.
func (s *Scorer) Binary() string { return s.binary }

// Score writes both texts to temp files and runs `wer -a -i ref hyp`.
// -a ignores case and -i prints the annotated reference.
func (s *Scorer) Score(ctx context.Context, reference, hypothesis string) (scoring.Result, error) {
	dir, err := os.MkdirTemp(s.workDir, "clmeval-wer-*")
	if err != nil {
		return scoring.Result{}, services.Wrap(services.ErrTransient, "scoring", "wer", "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	refPath := filepath.Join(dir, "gt.txt")
	hypPath := filepath.Join(dir, "tr.txt")
	if err := os.WriteFile(refPath, []byte(scoring.PrepareText(reference)), 0o644); err != nil {
		return scoring.Result{}, services.Wrap(services.ErrTransient, "scoring", "wer", "write reference", err)
	}
	if err := os.WriteFile(hypPath, []byte(scoring.PrepareText(hypothesis)), 0o644); err != nil {
		return scoring.Result{}, services.Wrap(services.ErrTransient, "scoring", "wer", "write hypothesis", err)
	}

	output, err := s.run(ctx, s.binary, "-a", "-i", refPath, hypPath)
	if err != nil {
		return scoring.Result{}, services.Wrap(services.ErrExternalTool, "scoring", "wer", "run wer", err)
	}
	return ParseOutput(string(output))
}

func (s *Scorer) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// ParseOutput extracts the WER percentage following "WER:" and the annotated
// reference between the first "REF:" and the following "HYP".
func ParseOutput(out string) (scoring.Result, error) {
	start := strings.Index(out, "WER:")
	if start < 0 {
		return scoring.Result{}, services.Wrap(services.ErrExternalTool, "scoring", "parse", "no WER line in wer output", nil)
	}
	rest := out[start+len("WER:"):]
	end := strings.Index(rest, "%")
	if end < 0 {
		return scoring.Result{}, services.Wrap(services.ErrExternalTool, "scoring", "parse", "WER line has no percent sign", nil)
	}
	wer, err := strconv.ParseFloat(strings.TrimSpace(rest[:end]), 64)
	if err != nil {
		return scoring.Result{}, services.Wrap(services.ErrExternalTool, "scoring", "parse", "WER value is not numeric", err)
	}

	result := scoring.Result{WER: wer, Markers: scoring.ANSIRed}
	if refStart := strings.Index(out, "REF:"); refStart >= 0 {
		body := out[refStart+len("REF:"):]
		if hypStart := strings.Index(body, "HYP"); hypStart >= 0 {
			body = body[:hypStart]
		}
		result.AnnotatedReference = strings.TrimSpace(body)
	}
	return result, nil
}

var _ scoring.Backend = (*Scorer)(nil)
