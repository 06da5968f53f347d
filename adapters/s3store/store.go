// Package s3store keeps synced files and the run log in an S3 bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"dashsync/internal/errors"
	"dashsync/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Store implements ports.ObjectStore over one bucket.
type Store struct {
	client API
	bucket string
	logger *zap.Logger
}

// New loads the default AWS credential chain for region and returns a
// store for bucket.
func New(ctx context.Context, bucket, region string, logger *zap.Logger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.SetupFailed("failed to load AWS configuration", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewWithClient creates a store around an existing client.
func NewWithClient(client API, bucket string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, bucket: bucket, logger: logger}
}

// Get reads an object. Missing keys return ports.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(ports.ErrNotFound, "s3://%s/%s", s.bucket, key)
		}
		return nil, errors.StorageError(fmt.Sprintf("failed to get %s", key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to read %s", key), err)
	}
	s.logger.Debug("read object", zap.String("key", key), zap.Int("bytes", len(data)))
	return data, nil
}

// Put writes an object, replacing any previous version.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.StorageError(fmt.Sprintf("failed to put %s", key), err)
	}
	s.logger.Info("uploaded object", zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

// Head returns object metadata without the body.
func (s *Store) Head(ctx context.Context, key string) (ports.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ports.ObjectInfo{}, errors.Wrapf(ports.ErrNotFound, "s3://%s/%s", s.bucket, key)
		}
		return ports.ObjectInfo{}, errors.StorageError(fmt.Sprintf("failed to head %s", key), err)
	}
	return ports.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// isNotFound recognises both the typed GetObject error and the bare 404
// code HeadObject returns.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
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
