// Package storage writes and reads summary artifacts in an S3-compatible
// content store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/retry"
)

// DefaultPrefix is the key prefix summaries are written under
const DefaultPrefix = "summaries"

const summaryContentType = "text/plain"

// Object metadata keys. S3-compatible stores lowercase custom metadata
// keys, so they are written lowercased to begin with.
const (
	metaKeyPushedAt    = "pushedat"
	metaKeyURL         = "url"
	metaKeyProcessedAt = "processedat"
)

// S3ClientConfig holds configuration for ArtifactStore
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UsePathStyle    bool
}

// ArtifactStore provides summary-artifact operations on S3-compatible
// storage (R2, RustFS, AWS)
type ArtifactStore struct {
	client   *s3.Client
	bucket   string
	prefix   string
	schedule retry.Schedule
	logger   *slog.Logger
}

// NewArtifactStore creates an ArtifactStore with the given configuration
func NewArtifactStore(ctx context.Context, cfg S3ClientConfig, logger *slog.Logger) (*ArtifactStore, error) {
	// Custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ArtifactStore{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		schedule: retry.DefaultSchedule(),
		logger:   logger,
	}, nil
}

// Key returns the object key a repository's summary lives under
func (c *ArtifactStore) Key(org, repo string) string {
	return domain.ArtifactKey(c.prefix, org, repo)
}

// PutArtifact writes a summary and its metadata envelope in a single
// object write, retried on the shared schedule. There is no partial state:
// either the object lands with its metadata or the write failed.
func (c *ArtifactStore) PutArtifact(ctx context.Context, org, repo, content string, meta domain.ArtifactMetadata) error {
	key := c.Key(org, repo)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(content),
		ContentType: aws.String(summaryContentType),
		Metadata: map[string]string{
			metaKeyPushedAt:    meta.PushedAt.UTC().Format(time.RFC3339),
			metaKeyURL:         meta.SourceURL,
			metaKeyProcessedAt: meta.ProcessedAt.UTC().Format(time.RFC3339),
		},
	}

	_, err := retry.Do(ctx, c.schedule, func() (struct{}, error) {
		_, err := c.client.PutObject(ctx, input)
		return struct{}{}, err
	}, func(err error, attempt int, delay time.Duration) {
		c.logger.Warn("artifact write failed, retrying",
			"key", key,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
	})
	if err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}

	return nil
}

// HeadArtifact returns the metadata envelope for a repository's summary
// without fetching its content. Missing objects map to
// domain.ErrArtifactNotFound.
func (c *ArtifactStore) HeadArtifact(ctx context.Context, org, repo string) (domain.ArtifactMetadata, error) {
	output, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.Key(org, repo)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return domain.ArtifactMetadata{}, domain.ErrArtifactNotFound
		}
		return domain.ArtifactMetadata{}, fmt.Errorf("failed to head artifact: %w", err)
	}

	return decodeMetadata(output.Metadata)
}

// GetArtifact fetches a repository's summary content and metadata
func (c *ArtifactStore) GetArtifact(ctx context.Context, org, repo string) (domain.SummaryArtifact, error) {
	key := c.Key(org, repo)

	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return domain.SummaryArtifact{}, domain.ErrArtifactNotFound
		}
		return domain.SummaryArtifact{}, fmt.Errorf("failed to get artifact: %w", err)
	}
	defer output.Body.Close()

	content, err := io.ReadAll(output.Body)
	if err != nil {
		return domain.SummaryArtifact{}, fmt.Errorf("failed to read artifact body: %w", err)
	}

	meta, err := decodeMetadata(output.Metadata)
	if err != nil {
		return domain.SummaryArtifact{}, err
	}

	return domain.SummaryArtifact{
		Key:     key,
		Content: string(content),
		Meta:    meta,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *ArtifactStore) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Ping reports whether the bucket is reachable
func (c *ArtifactStore) Ping(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

func decodeMetadata(raw map[string]string) (domain.ArtifactMetadata, error) {
	var meta domain.ArtifactMetadata

	if v, ok := raw[metaKeyPushedAt]; ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ArtifactMetadata{}, fmt.Errorf("malformed pushedat metadata %q: %w", v, err)
		}
		meta.PushedAt = t
	}

	if v, ok := raw[metaKeyProcessedAt]; ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ArtifactMetadata{}, fmt.Errorf("malformed processedat metadata %q: %w", v, err)
		}
		meta.ProcessedAt = t
	}

	meta.SourceURL = raw[metaKeyURL]

	return meta, nil
}
