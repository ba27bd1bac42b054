// Package awsconfig resolves the shared aws.Config used by the S3, Transcribe
// and Comprehend clients.
package awsconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"clmeval/internal/services"
)

// DefaultRegion is used when neither configuration nor AWS_REGION names one.
const DefaultRegion = "us-east-1"

// Options overrides parts of the default credential chain. Zero values fall
// back to the environment and then to the SDK defaults.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// FromEnv fills unset options from AWS_* environment variables.
func (o Options) FromEnv() Options {
	pick := func(current, key string) string {
		if strings.TrimSpace(current) != "" {
			return strings.TrimSpace(current)
		}
		return strings.TrimSpace(os.Getenv(key))
	}
	o.Region = pick(o.Region, "AWS_REGION")
	o.Profile = pick(o.Profile, "AWS_PROFILE")
	o.AccessKeyID = pick(o.AccessKeyID, "AWS_ACCESS_KEY_ID")
	o.SecretAccessKey = pick(o.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	o.SessionToken = pick(o.SessionToken, "AWS_SESSION_TOKEN")
	return o
}

// Load builds an aws.Config. Static keys win over a named profile; with
// neither, the SDK default chain (instance roles, SSO) applies.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	opts = opts.FromEnv()
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	switch {
	case opts.AccessKeyID != "" || opts.SecretAccessKey != "":
		if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
			return aws.Config{}, services.Wrap(services.ErrConfiguration, "aws", "credentials",
				"both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required when using key-based auth",
				errors.New("incomplete static credentials"))
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	case opts.Profile != "":
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
