// Package awstranscribe implements transcribe.Backend on Amazon Transcribe.
//
// Media, output and training data live in the configured S3 storage root;
// the store must therefore implement storage.Locator.
package awstranscribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"

	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/transcribe"
)

// API is the subset of the Transcribe client used by the backend.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
	CreateLanguageModel(ctx context.Context, params *awstranscribe.CreateLanguageModelInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.CreateLanguageModelOutput, error)
	DescribeLanguageModel(ctx context.Context, params *awstranscribe.DescribeLanguageModelInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.DescribeLanguageModelOutput, error)
}

// Store is an S3-backed object store.
type Store interface {
	storage.Store
	storage.Locator
}

// Options carries request defaults.
type Options struct {
	LanguageCode string
	BaseModel    string
}

// Backend talks to Amazon Transcribe.
type Backend struct {
	api   API
	store Store
	opts  Options
}

// New builds a backend from an AWS config. The store must be S3-backed.
func New(awsCfg aws.Config, store storage.Store, opts Options) (*Backend, error) {
	return NewWithClient(awstranscribe.NewFromConfig(awsCfg), store, opts)
}

// NewWithClient uses the supplied API client (for testing).
func NewWithClient(api API, store storage.Store, opts Options) (*Backend, error) {
	located, ok := store.(Store)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "init",
			"amazon transcribe needs an s3:// storage root", nil)
	}
	if strings.TrimSpace(opts.LanguageCode) == "" {
		opts.LanguageCode = "en-US"
	}
	if strings.TrimSpace(opts.BaseModel) == "" {
		opts.BaseModel = string(types.BaseModelNameWideBand)
	}
	return &Backend{api: api, store: located, opts: opts}, nil
}

func (b *Backend) s3URI(key string) string {
	return "s3://" + b.store.Bucket() + "/" + b.store.ObjectKey(key)
}

func (b *Backend) startInput(req transcribe.Request) *awstranscribe.StartTranscriptionJobInput {
	lang := req.LanguageCode
	if lang == "" {
		lang = b.opts.LanguageCode
	}
	return &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.JobName),
		LanguageCode:         types.LanguageCode(lang),
		Media:                &types.Media{MediaFileUri: aws.String(b.s3URI(req.MediaKey))},
		OutputBucketName:     aws.String(b.store.Bucket()),
		OutputKey:            aws.String(b.store.ObjectKey(req.OutputKey)),
	}
}

// SubmitStandard starts a transcription without a custom model.
func (b *Backend) SubmitStandard(ctx context.Context, req transcribe.Request) (transcribe.Job, error) {
	return b.start(ctx, b.startInput(req), req, "")
}

// SubmitCustom starts a transcription using the named language model.
func (b *Backend) SubmitCustom(ctx context.Context, req transcribe.Request, modelID string) (transcribe.Job, error) {
	input := b.startInput(req)
	input.ModelSettings = &types.ModelSettings{LanguageModelName: aws.String(modelID)}
	return b.start(ctx, input, req, modelID)
}

func (b *Backend) start(ctx context.Context, input *awstranscribe.StartTranscriptionJobInput, req transcribe.Request, modelID string) (transcribe.Job, error) {
	job := transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey, ModelID: modelID}
	if _, err := b.api.StartTranscriptionJob(ctx, input); err != nil {
		// A job with this name already exists, typically from an interrupted
		// run; polling it is equivalent to resubmitting.
		if apiErrorCode(err) == "ConflictException" {
			return job, nil
		}
		return job, classify(err, "start transcription job "+req.JobName)
	}
	return job, nil
}

// JobStatus maps the Transcribe job status onto transcribe.Status.
func (b *Backend) JobStatus(ctx context.Context, job transcribe.Job) (transcribe.Status, error) {
	out, err := b.api.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(job.Name),
	})
	if err != nil {
		return "", classify(err, "get transcription job "+job.Name)
	}
	if out.TranscriptionJob == nil {
		return "", services.Wrap(services.ErrNotFound, "transcribe", "status", job.Name, nil)
	}
	switch out.TranscriptionJob.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		return transcribe.StatusCompleted, nil
	case types.TranscriptionJobStatusFailed:
		return transcribe.StatusFailed, services.Wrap(services.ErrJobFailed, "transcribe", "status",
			fmt.Sprintf("%s: %s", job.Name, aws.ToString(out.TranscriptionJob.FailureReason)), nil)
	default:
		return transcribe.StatusInProgress, nil
	}
}

// FetchResult reads the job output from the storage root.
func (b *Backend) FetchResult(ctx context.Context, job transcribe.Job) (string, error) {
	data, err := b.store.Read(ctx, job.OutputKey)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribe", "fetch result", job.OutputKey, err)
	}
	text, err := transcribe.DecodeOutput(data)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcribe", "fetch result", job.OutputKey, err)
	}
	return text, nil
}

// SubmitTraining creates a custom language model from the training data prefix.
func (b *Backend) SubmitTraining(ctx context.Context, req transcribe.TrainingRequest) (string, error) {
	if strings.TrimSpace(req.AccessRoleARN) == "" {
		return "", services.Wrap(services.ErrConfiguration, "transcribe", "train",
			"a data access role ARN is required for CLM training", nil)
	}
	base := req.BaseModel
	if base == "" {
		base = b.opts.BaseModel
	}
	lang := req.LanguageCode
	if lang == "" {
		lang = b.opts.LanguageCode
	}
	_, err := b.api.CreateLanguageModel(ctx, &awstranscribe.CreateLanguageModelInput{
		BaseModelName: types.BaseModelName(base),
		LanguageCode:  types.CLMLanguageCode(lang),
		ModelName:     aws.String(req.ModelName),
		InputDataConfig: &types.InputDataConfig{
			S3Uri:             aws.String(b.s3URI(req.DataPrefix)),
			DataAccessRoleArn: aws.String(req.AccessRoleARN),
		},
	})
	if err != nil {
		return "", classify(err, "create language model "+req.ModelName)
	}
	return req.ModelName, nil
}

// TrainingStatus maps the language model status onto transcribe.Status.
func (b *Backend) TrainingStatus(ctx context.Context, modelID string) (transcribe.Status, error) {
	out, err := b.api.DescribeLanguageModel(ctx, &awstranscribe.DescribeLanguageModelInput{
		ModelName: aws.String(modelID),
	})
	if err != nil {
		return "", classify(err, "describe language model "+modelID)
	}
	if out.LanguageModel == nil {
		return "", services.Wrap(services.ErrNotFound, "transcribe", "training status", modelID, nil)
	}
	switch out.LanguageModel.ModelStatus {
	case types.ModelStatusCompleted:
		return transcribe.StatusCompleted, nil
	case types.ModelStatusFailed:
		return transcribe.StatusFailed, services.Wrap(services.ErrJobFailed, "transcribe", "training status",
			fmt.Sprintf("%s: %s", modelID, aws.ToString(out.LanguageModel.FailureReason)), nil)
	default:
		return transcribe.StatusInProgress, nil
	}
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func classify(err error, op string) error {
	switch apiErrorCode(err) {
	case "NotFoundException":
		return services.Wrap(services.ErrNotFound, "transcribe", op, "", err)
	case "BadRequestException":
		return services.Wrap(services.ErrValidation, "transcribe", op, "", err)
	case "LimitExceededException", "InternalFailureException":
		return services.Wrap(services.ErrTransient, "transcribe", op, "", err)
	default:
		return services.Wrap(services.ErrExternalTool, "transcribe", op, "", err)
	}
}

var _ transcribe.Backend = (*Backend)(nil)
