package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage describes where input folders, keywords, training data and results live.
type Storage struct {
	// Root is either s3://bucket/prefix or a local directory.
	Root           string `toml:"root"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// CLM contains custom language model training settings.
type CLM struct {
	SelfHeal      bool   `toml:"self_heal"`
	AccessRoleARN string `toml:"access_role_arn"`
	LanguageCode  string `toml:"language_code"`
	BaseModel     string `toml:"base_model"`
}

// Transcription selects the transcription backend and its polling budget.
type Transcription struct {
	Backend                string `toml:"backend"`
	PollInitialSeconds     int    `toml:"poll_initial_seconds"`
	PollMaxSeconds         int    `toml:"poll_max_seconds"`
	TrainingPollMaxSeconds int    `toml:"training_poll_max_seconds"`
	JobTimeoutSeconds      int    `toml:"job_timeout_seconds"`
	TrainingTimeoutSeconds int    `toml:"training_timeout_seconds"`
	WhisperXModel          string `toml:"whisperx_model"`
	WhisperXCUDA           bool   `toml:"whisperx_cuda"`
	WhisperXTimeoutSeconds int    `toml:"whisperx_timeout_seconds"`
}

// Scoring selects the WER engine.
type Scoring struct {
	Engine    string `toml:"engine"`
	WERBinary string `toml:"wer_binary"`
}

// Keywords selects the noun extraction backend.
type Keywords struct {
	Extractor string `toml:"extractor"`
}

// TrainingData controls acquisition of CLM training text for learned keywords.
type TrainingData struct {
	Enabled               bool   `toml:"enabled"`
	BaseURL               string `toml:"base_url"`
	UserAgent             string `toml:"user_agent"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Notifications configures ntfy run notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Paths contains local directories for process state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for clmeval.
//
// Configuration sections by subsystem:
//   - Storage: object store root for inputs and artifacts
//   - CLM: self-heal training and data access role
//   - Transcription: backend choice and polling/timeout budget
//   - Scoring: WER engine
//   - Keywords: noun extraction backend
//   - TrainingData: reference page acquisition for new keywords
//   - Notifications: ntfy topic for run milestones
//   - Paths: local state (lock file, history database) and logs
//   - Logging: log format, level, and retention
type Config struct {
	Storage       Storage       `toml:"storage"`
	CLM           CLM           `toml:"clm"`
	Transcription Transcription `toml:"transcription"`
	Scoring       Scoring       `toml:"scoring"`
	Keywords      Keywords      `toml:"keywords"`
	TrainingData  TrainingData  `toml:"training_data"`
	Notifications Notifications `toml:"notifications"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clmeval/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clmeval.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state and log directories. A local
// storage root is created as well so a fresh workspace can be populated.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	if !c.Storage.IsS3() {
		dirs = append(dirs, c.Storage.Root)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsS3 reports whether the storage root points at an S3 bucket.
func (s Storage) IsS3() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s.Root)), "s3://")
}

// S3Location splits an s3://bucket/prefix root into bucket and prefix.
func (s Storage) S3Location() (bucket, prefix string, ok bool) {
	if !s.IsS3() {
		return "", "", false
	}
	rest := strings.TrimSpace(s.Root)[len("s3://"):]
	bucket, prefix, _ = strings.Cut(rest, "/")
	prefix = strings.Trim(prefix, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, prefix, true
}

// LockPath returns the single-writer lock file guarding evaluation runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "clmeval.lock")
}

// HistoryPath returns the SQLite database recording runs and jobs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// PollInitial returns the first backoff interval for job polling.
func (t Transcription) PollInitial() time.Duration {
	return time.Duration(t.PollInitialSeconds) * time.Second
}

// PollMax returns the cap on the job polling interval.
func (t Transcription) PollMax() time.Duration {
	return time.Duration(t.PollMaxSeconds) * time.Second
}

// TrainingPollMax returns the cap on the training status polling interval.
func (t Transcription) TrainingPollMax() time.Duration {
	return time.Duration(t.TrainingPollMaxSeconds) * time.Second
}

// JobTimeout returns the wall-clock budget for one transcription job.
func (t Transcription) JobTimeout() time.Duration {
	return time.Duration(t.JobTimeoutSeconds) * time.Second
}

// TrainingTimeout returns the wall-clock budget for CLM training.
func (t Transcription) TrainingTimeout() time.Duration {
	return time.Duration(t.TrainingTimeoutSeconds) * time.Second
}

// WhisperXTimeout bounds one local WhisperX invocation.
func (t Transcription) WhisperXTimeout() time.Duration {
	return time.Duration(t.WhisperXTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
