package config

import (
	"errors"
	"fmt"
	"strings"

	"clmeval/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCLM(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateTrainingData(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	if c.Storage.Root == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clmeval/config.toml"
		}
		return fmt.Errorf("storage.root is required. Set CLMEVAL_STORAGE_ROOT env var or edit %s (create with 'clmeval config init')", defaultPath)
	}
	if c.Storage.IsS3() {
		if _, _, ok := c.Storage.S3Location(); !ok {
			return fmt.Errorf("storage.root %q must name a bucket (s3://bucket/prefix)", c.Storage.Root)
		}
	}
	return nil
}

func (c *Config) validateCLM() error {
	code := c.CLM.LanguageCode
	if !language.Known(code) {
		return fmt.Errorf("clm.language_code %q is not a supported locale", code)
	}
	if c.CLM.SelfHeal && !language.SupportsCustomModels(code) {
		return fmt.Errorf("clm.self_heal needs a locale with custom model support (%s), got %q",
			strings.Join(language.CustomModelLocales(), ", "), code)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Backend {
	case BackendAWS:
		if !c.Storage.IsS3() {
			return errors.New("transcription.backend \"aws\" requires an s3:// storage.root")
		}
	case BackendWhisperX:
		if c.CLM.SelfHeal {
			return errors.New("clm.self_heal requires transcription.backend \"aws\"")
		}
	default:
		return fmt.Errorf("transcription.backend must be %q or %q, got %q", BackendAWS, BackendWhisperX, t.Backend)
	}
	if t.PollInitialSeconds <= 0 {
		return errors.New("transcription.poll_initial_seconds must be positive")
	}
	if t.PollMaxSeconds < t.PollInitialSeconds {
		return errors.New("transcription.poll_max_seconds must be >= poll_initial_seconds")
	}
	if t.TrainingPollMaxSeconds < t.PollInitialSeconds {
		return errors.New("transcription.training_poll_max_seconds must be >= poll_initial_seconds")
	}
	if t.JobTimeoutSeconds <= 0 {
		return errors.New("transcription.job_timeout_seconds must be positive")
	}
	if t.TrainingTimeoutSeconds <= 0 {
		return errors.New("transcription.training_timeout_seconds must be positive")
	}
	if t.WhisperXTimeoutSeconds <= 0 {
		return errors.New("transcription.whisperx_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	switch c.Scoring.Engine {
	case EngineWER, EngineDiff:
	default:
		return fmt.Errorf("scoring.engine must be %q or %q, got %q", EngineWER, EngineDiff, c.Scoring.Engine)
	}
	switch c.Keywords.Extractor {
	case ExtractorComprehend, ExtractorPassthru:
	default:
		return fmt.Errorf("keywords.extractor must be %q or %q, got %q", ExtractorComprehend, ExtractorPassthru, c.Keywords.Extractor)
	}
	return nil
}

func (c *Config) validateTrainingData() error {
	if !c.TrainingData.Enabled {
		return nil
	}
	if c.TrainingData.RequestTimeoutSeconds <= 0 {
		return errors.New("training_data.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL (https://ntfy.sh/<topic>), got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
