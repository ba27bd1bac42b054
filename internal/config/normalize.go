package config

import (
	"fmt"
	"os"
	"strings"

	"clmeval/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeCLM()
	c.normalizeTranscription()
	c.normalizeScoring()
	c.normalizeTrainingData()
	c.normalizeNotifications()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Root = strings.TrimSpace(c.Storage.Root)
	if c.Storage.Root == "" {
		if value, ok := os.LookupEnv("CLMEVAL_STORAGE_ROOT"); ok {
			c.Storage.Root = strings.TrimSpace(value)
		}
	}
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.Storage.Region = strings.TrimSpace(value)
		}
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.Root == "" || c.Storage.IsS3() {
		return nil
	}
	var err error
	if c.Storage.Root, err = expandPath(c.Storage.Root); err != nil {
		return fmt.Errorf("storage.root: %w", err)
	}
	return nil
}

func (c *Config) normalizeCLM() {
	c.CLM.AccessRoleARN = strings.TrimSpace(c.CLM.AccessRoleARN)
	if c.CLM.AccessRoleARN == "" {
		if value, ok := os.LookupEnv("CLMEVAL_ACCESS_ROLE_ARN"); ok {
			c.CLM.AccessRoleARN = strings.TrimSpace(value)
		}
	}
	c.CLM.LanguageCode = language.Normalize(c.CLM.LanguageCode)
	if c.CLM.LanguageCode == "" {
		c.CLM.LanguageCode = defaultLanguageCode
	}
	c.CLM.BaseModel = strings.TrimSpace(c.CLM.BaseModel)
	if c.CLM.BaseModel == "" {
		c.CLM.BaseModel = defaultBaseModel
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultTranscriptionBackend
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
}

func (c *Config) normalizeScoring() {
	c.Scoring.Engine = strings.ToLower(strings.TrimSpace(c.Scoring.Engine))
	if c.Scoring.Engine == "" {
		c.Scoring.Engine = defaultScoringEngine
	}
	c.Scoring.WERBinary = strings.TrimSpace(c.Scoring.WERBinary)
	if c.Scoring.WERBinary == "" {
		c.Scoring.WERBinary = defaultWERBinary
	}
	c.Keywords.Extractor = strings.ToLower(strings.TrimSpace(c.Keywords.Extractor))
	if c.Keywords.Extractor == "" {
		c.Keywords.Extractor = defaultKeywordExtractor
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLMEVAL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeTrainingData() {
	c.TrainingData.BaseURL = strings.TrimSpace(c.TrainingData.BaseURL)
	if c.TrainingData.BaseURL == "" {
		c.TrainingData.BaseURL = defaultTrainingDataBaseURL
	}
	c.TrainingData.UserAgent = strings.TrimSpace(c.TrainingData.UserAgent)
	if c.TrainingData.UserAgent == "" {
		c.TrainingData.UserAgent = defaultTrainingDataUserAgent
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
