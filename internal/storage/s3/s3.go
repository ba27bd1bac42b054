// Package s3 implements storage.Store on an Amazon S3 (or compatible) bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"clmeval/internal/storage"
)

// Options configures the client. Prefix is prepended to every key.
type Options struct {
	Bucket         string
	Prefix         string
	Endpoint       string
	ForcePathStyle bool
}

// Store implements storage.Store over one bucket/prefix.
type Store struct {
	client *awss3.Client
	bucket string
	prefix string
}

// New creates a store from a resolved aws.Config.
func New(awsCfg aws.Config, opts Options) (*Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}

	var s3Opts []func(*awss3.Options)
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else if opts.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	prefix := strings.Trim(storage.CleanKey(opts.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{
		client: awss3.NewFromConfig(awsCfg, s3Opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// ObjectKey maps a relative key onto the full bucket key.
func (s *Store) ObjectKey(key string) string {
	return s.prefix + storage.CleanKey(key)
}

// Read fetches an object.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("storage: %s: %w", s.URI(key), storage.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: s3 get %s: %w", s.URI(key), err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 read %s: %w", s.URI(key), err)
	}
	return data, nil
}

// Write uploads an object, replacing any existing one.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.ObjectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 put %s: %w", s.URI(key), err)
	}
	return nil
}

// List pages through ListObjectsV2 and returns keys relative to the prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.ObjectKey(prefix)),
	}

	var objects []storage.ObjectInfo
	paginator := awss3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: s3 list %s: %w", s.URI(prefix), err)
		}
		for _, obj := range page.Contents {
			full := aws.ToString(obj.Key)
			if strings.HasSuffix(full, "/") {
				continue
			}
			info := storage.ObjectInfo{
				Key:  strings.TrimPrefix(full, s.prefix),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	storage.SortObjects(objects)
	return objects, nil
}

// URI renders s3://bucket/<full key>.
func (s *Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + s.ObjectKey(key)
}

func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Locator = (*Store)(nil)
)
