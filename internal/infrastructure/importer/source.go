// Package importer loads recipe import documents from local files or S3.
package importer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"
)

const s3Scheme = "s3://"

// FileSource opens local files.
type FileSource struct{}

// Open opens the file at location.
func (FileSource) Open(_ context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(strings.TrimPrefix(location, "file://"))
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	return f, nil
}

// S3Source reads objects addressed as s3://bucket/key.
type S3Source struct {
	client s3iface.S3API
	logger *zap.Logger
}

// NewS3Source creates an S3 source from configuration. Static credentials
// are used when both keys are set; otherwise the default chain applies.
func NewS3Source(cfg config.AWSConfig, logger *zap.Logger) (*S3Source, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3SourceWithClient(s3.New(sess), logger), nil
}

// NewS3SourceWithClient wraps an existing S3 client.
func NewS3SourceWithClient(client s3iface.S3API, logger *zap.Logger) *S3Source {
	return &S3Source{client: client, logger: logger.Named("s3-source")}
}

// Open fetches the object body.
func (s *S3Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s/%s: %w", bucket, key, err)
	}

	s.logger.Debug("Opened S3 object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", aws.Int64Value(out.ContentLength)),
	)
	return out.Body, nil
}

// ParseS3Location splits s3://bucket/key.
func ParseS3Location(location string) (bucket, key string, err error) {
	if !strings.HasPrefix(location, s3Scheme) {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 location %q: %w", location, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 location %q needs a bucket and a key", location)
	}
	return u.Host, key, nil
}

// Router dispatches s3:// locations to the S3 source and everything else
// to the file source.
type Router struct {
	Files outbound.ObjectSource
	S3    outbound.ObjectSource
}

var _ outbound.ObjectSource = (*Router)(nil)

// Open implements outbound.ObjectSource.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, s3Scheme) {
		if r.S3 == nil {
			return nil, fmt.Errorf("s3 imports are not configured: %s", location)
		}
		return r.S3.Open(ctx, location)
	}
	files := r.Files
	if files == nil {
		files = FileSource{}
	}
	return files.Open(ctx, location)
}
