package whisperx

import "time"

// Config captures runtime settings for WhisperX runs.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// Language is passed to WhisperX as an ISO 639-1 code when set.
	Language string
	// Timeout bounds one transcription, including audio extraction.
	Timeout time.Duration
	// WorkDir holds temporary media and WhisperX output; empty uses os.TempDir.
	WorkDir string
	// FFmpegBinary overrides the ffmpeg executable.
	FFmpegBinary string
}

// WhisperX configuration constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	VADMethod         = "silero"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
