package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"clmeval/internal/awsconfig"
	"clmeval/internal/config"
	"clmeval/internal/keywords"
	"clmeval/internal/language"
	"clmeval/internal/keywords/comprehend"
	"clmeval/internal/logging"
	"clmeval/internal/orchestrator"
	"clmeval/internal/scoring"
	"clmeval/internal/scoring/diffscore"
	"clmeval/internal/scoring/wercli"
	"clmeval/internal/storage"
	"clmeval/internal/storage/local"
	"clmeval/internal/storage/s3"
	"clmeval/internal/trainingdata"
	"clmeval/internal/transcribe"
	"clmeval/internal/transcribe/awstranscribe"
	"clmeval/internal/transcribe/whisperx"
)

// collaborators builds the config-selected backends, resolving the AWS
// config at most once.
type collaborators struct {
	cfg    *config.Config
	logger *slog.Logger

	awsCfg    aws.Config
	awsLoaded bool
}

func newCollaborators(cfg *config.Config, logger *slog.Logger) *collaborators {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &collaborators{cfg: cfg, logger: logger}
}

func (c *collaborators) aws(ctx context.Context) (aws.Config, error) {
	if c.awsLoaded {
		return c.awsCfg, nil
	}
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: c.cfg.Storage.Region})
	if err != nil {
		return aws.Config{}, err
	}
	c.awsCfg = awsCfg
	c.awsLoaded = true
	return awsCfg, nil
}

func (c *collaborators) store(ctx context.Context) (storage.Store, error) {
	if !c.cfg.Storage.IsS3() {
		return local.New(c.cfg.Storage.Root)
	}
	bucket, prefix, ok := c.cfg.Storage.S3Location()
	if !ok {
		return nil, fmt.Errorf("storage.root %q must name a bucket", c.cfg.Storage.Root)
	}
	awsCfg, err := c.aws(ctx)
	if err != nil {
		return nil, err
	}
	return s3.New(awsCfg, s3.Options{
		Bucket:         bucket,
		Prefix:         prefix,
		Endpoint:       c.cfg.Storage.Endpoint,
		ForcePathStyle: c.cfg.Storage.ForcePathStyle,
	})
}

func (c *collaborators) backend(ctx context.Context, store storage.Store) (transcribe.Backend, error) {
	t := c.cfg.Transcription
	switch t.Backend {
	case config.BackendWhisperX:
		return whisperx.New(whisperx.Config{
			Model:       t.WhisperXModel,
			CUDAEnabled: t.WhisperXCUDA,
			Language:    language.ToISO2(c.cfg.CLM.LanguageCode),
			Timeout:     t.WhisperXTimeout(),
			WorkDir:     filepath.Join(c.cfg.Paths.StateDir, "work"),
		}, store), nil
	default:
		awsCfg, err := c.aws(ctx)
		if err != nil {
			return nil, err
		}
		return awstranscribe.New(awsCfg, store, awstranscribe.Options{
			LanguageCode: c.cfg.CLM.LanguageCode,
			BaseModel:    c.cfg.CLM.BaseModel,
		})
	}
}

func (c *collaborators) scorer() scoring.Backend {
	if c.cfg.Scoring.Engine == config.EngineDiff {
		return diffscore.New()
	}
	return wercli.New(c.cfg.Scoring.WERBinary, filepath.Join(c.cfg.Paths.StateDir, "work"))
}

func (c *collaborators) extractor(ctx context.Context) (keywords.Extractor, error) {
	if c.cfg.Keywords.Extractor == config.ExtractorPassthru {
		return keywords.Passthrough{}, nil
	}
	awsCfg, err := c.aws(ctx)
	if err != nil {
		return nil, err
	}
	return comprehend.New(awsCfg), nil
}

// acquirer returns nil when training data acquisition is disabled.
func (c *collaborators) acquirer(store storage.Store) orchestrator.Acquirer {
	td := c.cfg.TrainingData
	if !td.Enabled {
		return nil
	}
	return trainingdata.New(store, trainingdata.Options{
		BaseURL:   td.BaseURL,
		UserAgent: td.UserAgent,
		Timeout:   time.Duration(td.RequestTimeoutSeconds) * time.Second,
		Logger:    logging.NewComponentLogger(c.logger, "trainingdata"),
	})
}

func (c *collaborators) settings() orchestrator.Settings {
	t := c.cfg.Transcription
	return orchestrator.Settings{
		JobPoll: transcribe.PollOptions{
			Initial: t.PollInitial(),
			Max:     t.PollMax(),
			Timeout: t.JobTimeout(),
		},
		TrainingPoll: transcribe.PollOptions{
			Initial: t.PollInitial(),
			Max:     t.TrainingPollMax(),
			Timeout: t.TrainingTimeout(),
		},
		LanguageCode: c.cfg.CLM.LanguageCode,
		BaseModel:    c.cfg.CLM.BaseModel,
		StorageRoot:  c.cfg.Storage.Root,
	}
}
