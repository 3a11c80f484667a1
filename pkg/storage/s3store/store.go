package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/conduit/pkg/storage"
)

var tracer = otel.Tracer("github.com/platinummonkey/conduit/pkg/storage/s3store")

// ObjectAPI is the part of *s3.Client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store keeps the saved state as a YAML object at
// <prefix>/<namespace>/saved-plugins.yaml.
type Store struct {
	client ObjectAPI
	bucket string
	key    string
}

// New creates an S3 client from cfg.
func New(ctx context.Context, cfg storage.Config) (*Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		// static credentials for MinIO or explicit keys
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectAPI, cfg storage.Config) *Store {
	return &Store{
		client: client,
		bucket: cfg.S3Bucket,
		key:    path.Join(cfg.S3Prefix, cfg.Namespace, "saved-plugins.yaml"),
	}
}

// Key returns the object key.
func (s *Store) Key() string { return s.key }

// LoadState implements storage.StateReader.
func (s *Store) LoadState(ctx context.Context) (*storage.SavedState, error) {
	ctx, span := s.start(ctx, "S3.LoadState")
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return &storage.SavedState{}, nil
		}
		return nil, spanError(span, fmt.Errorf("failed to get object from s3: %w", err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to read object: %w", err))
	}

	var state storage.SavedState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to unmarshal %s: %w", s.key, err))
	}
	span.SetAttributes(attribute.Int("plugins.count", len(state.Plugins)))
	return &state, nil
}

// SaveState implements storage.StateWriter.
func (s *Store) SaveState(ctx context.Context, state *storage.SavedState) error {
	ctx, span := s.start(ctx, "S3.SaveState")
	defer span.End()

	out := *state
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return spanError(span, fmt.Errorf("failed to marshal state: %w", err))
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return spanError(span, fmt.Errorf("failed to upload to s3: %w", err))
	}
	return nil
}

// HealthCheck verifies S3 connectivity
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// Close implements storage.Store. The SDK holds no connections to release.
func (s *Store) Close() error { return nil }

func (s *Store) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("s3.bucket", s.bucket),
		attribute.String("s3.key", s.key),
	))
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
