// Package whisperx implements transcribe.Backend with a local WhisperX run
// launched through uvx.
//
// Jobs run synchronously inside the submit call: the media object is copied
// from storage into a work directory, converted to WAV with ffmpeg and
// transcribed. The transcript is written back to the job's output key in the
// shared output document shape, so JobStatus reports COMPLETED immediately.
// Custom language model training is an Amazon Transcribe feature and is not
// available here.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"clmeval/internal/language"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/transcribe"
)

// Backend runs WhisperX locally.
type Backend struct {
	cfg           Config
	store         storage.Store
	commandRunner func(ctx context.Context, name string, args ...string) error

	mu   sync.Mutex
	done map[string]struct{}
}

// New creates a WhisperX backend over store.
func New(cfg Config, store storage.Store) *Backend {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = FFmpegCommand
	}
	return &Backend{cfg: cfg, store: store, done: make(map[string]struct{})}
}

// WithCommandRunner sets a custom command runner (for testing).
func (b *Backend) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	b.commandRunner = runner
}

// Model returns the configured model name for logging.
func (b *Backend) Model() string { return b.cfg.Model }

func (b *Backend) run(ctx context.Context, name string, args ...string) error {
	if b.commandRunner != nil {
		return b.commandRunner(ctx, name, args...)
	}
	return execCommand(ctx, name, args...)
}

// SubmitStandard transcribes the media synchronously.
func (b *Backend) SubmitStandard(ctx context.Context, req transcribe.Request) (transcribe.Job, error) {
	job := transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey}
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}
	text, err := b.transcribe(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return job, services.Wrap(services.ErrTimeout, "whisperx", "transcribe", req.JobName, err)
		}
		return job, services.Wrap(services.ErrExternalTool, "whisperx", "transcribe", req.JobName, err)
	}
	payload, err := transcribe.EncodeOutput(req.JobName, text)
	if err != nil {
		return job, services.Wrap(services.ErrTransient, "whisperx", "encode output", req.JobName, err)
	}
	if err := b.store.Write(ctx, req.OutputKey, payload); err != nil {
		return job, services.Wrap(services.ErrTransient, "whisperx", "write output", req.OutputKey, err)
	}
	b.mu.Lock()
	b.done[req.JobName] = struct{}{}
	b.mu.Unlock()
	return job, nil
}

func (b *Backend) transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	workDir, err := os.MkdirTemp(b.cfg.WorkDir, "clmeval-whisperx-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	media, err := b.store.Read(ctx, req.MediaKey)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	source := filepath.Join(workDir, "source"+path.Ext(req.MediaKey))
	if err := os.WriteFile(source, media, 0o644); err != nil {
		return "", fmt.Errorf("stage media: %w", err)
	}

	wav := filepath.Join(workDir, "audio.wav")
	if err := b.run(ctx, b.cfg.FFmpegBinary, buildFFmpegExtractArgs(source, wav)...); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}

	outputDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output dir: %w", err)
	}
	locale := b.cfg.Language
	if req.LanguageCode != "" {
		locale = req.LanguageCode
	}
	if err := b.run(ctx, UVXCommand, b.buildArgs(wav, outputDir, locale)...); err != nil {
		return "", fmt.Errorf("whisperx: %w", err)
	}
	return loadTranscriptText(filepath.Join(outputDir, "audio.json"))
}

// SubmitCustom is unsupported: WhisperX has no custom language models.
func (b *Backend) SubmitCustom(_ context.Context, req transcribe.Request, modelID string) (transcribe.Job, error) {
	return transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey, ModelID: modelID},
		services.Wrap(services.ErrConfiguration, "whisperx", "submit custom",
			"custom language models need the aws transcription backend", nil)
}

// JobStatus reports COMPLETED for jobs this backend finished.
func (b *Backend) JobStatus(_ context.Context, job transcribe.Job) (transcribe.Status, error) {
	b.mu.Lock()
	_, ok := b.done[job.Name]
	b.mu.Unlock()
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "whisperx", "status", job.Name, nil)
	}
	return transcribe.StatusCompleted, nil
}

// FetchResult reads the transcript written by SubmitStandard.
func (b *Backend) FetchResult(ctx context.Context, job transcribe.Job) (string, error) {
	data, err := b.store.Read(ctx, job.OutputKey)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "whisperx", "fetch result", job.OutputKey, err)
	}
	return transcribe.DecodeOutput(data)
}

// SubmitTraining is unsupported.
func (b *Backend) SubmitTraining(context.Context, transcribe.TrainingRequest) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "whisperx", "train",
		"CLM training needs the aws transcription backend", nil)
}

// TrainingStatus is unsupported.
func (b *Backend) TrainingStatus(_ context.Context, modelID string) (transcribe.Status, error) {
	return "", services.Wrap(services.ErrConfiguration, "whisperx", "training status", modelID, nil)
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (b *Backend) buildArgs(source, outputDir, locale string) []string {
	args := make([]string, 0, 32)
	if b.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", b.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_method", VADMethod,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)
	if code := language.ToISO2(locale); code != "" {
		args = append(args, "--language", code)
	}
	if b.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// Segment is one transcribed span from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

func loadTranscriptText(jsonPath string) (string, error) {
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

var _ transcribe.Backend = (*Backend)(nil)
