// Package storage keeps uploaded image bytes in S3 when it is configured.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/config"
)

// ErrNotConfigured no bucket or credentials were given
var ErrNotConfigured = errors.New("s3 storage not configured")

// ObjectAPI the subset of the S3 client used here
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Service stores image objects under one key prefix
type S3Service struct {
	api    ObjectAPI
	bucket string
	prefix string
}

// NewS3Service builds a client from static credentials.
func NewS3Service(ctx context.Context, cfg config.S3Config) (*S3Service, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Info().Str("module", "storage").Str("bucket", cfg.BucketName).Str("region", cfg.Region).Msg("s3 storage enabled")
	return NewS3ServiceWithAPI(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.KeyPrefix), nil
}

// NewS3ServiceWithAPI wraps an existing client
func NewS3ServiceWithAPI(api ObjectAPI, bucket, prefix string) *S3Service {
	return &S3Service{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey key for one image node. The extension of fileName is kept.
func (s *S3Service) ObjectKey(roomID, projectID, nodeID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return path.Join(s.prefix, roomID, projectID, nodeID+ext)
}

// Upload writes data under key.
func (s *S3Service) Upload(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
