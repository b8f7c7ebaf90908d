package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	assetCacheControl   = "public, max-age=86400"
	payloadCacheControl = "public, max-age=60"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Bucket        string
	Region        string
	KeyPrefix     string // namespace for cached assets, e.g. "news-img"
	PublishPrefix string // namespace for payloads, e.g. "cache"
	PublicBaseURL string // e.g. "https://assets.example.com"
}

// S3 stores assets in a bucket. Puts are idempotent per key, which stands in
// for locking: overlapping refresh runs write equivalent bytes.
type S3 struct {
	client s3API
	cfg    S3Config
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(awsCfg), cfg: normalizeS3Config(cfg)}, nil
}

func normalizeS3Config(cfg S3Config) S3Config {
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "news-img"
	}
	cfg.PublishPrefix = strings.Trim(cfg.PublishPrefix, "/")
	if cfg.PublishPrefix == "" {
		cfg.PublishPrefix = "cache"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg
}

func (s *S3) assetKey(key, ext string) string {
	return s.cfg.KeyPrefix + "/" + key + ext
}

func (s *S3) Exists(ctx context.Context, key, ext string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.assetKey(key, ext)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", s.assetKey(key, ext), err)
	}
	return true, nil
}

func (s *S3) Write(ctx context.Context, key, ext string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          aws.String(s.assetKey(key, ext)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(assetCacheControl),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.assetKey(key, ext), err)
	}
	return nil
}

func (s *S3) PublicRef(key, ext string) string {
	return s.cfg.PublicBaseURL + "/" + s.assetKey(key, ext)
}

func (s *S3) Publish(ctx context.Context, name string, data []byte, contentType string) error {
	objKey := s.cfg.PublishPrefix + "/" + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          aws.String(objKey),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(payloadCacheControl),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", objKey, err)
	}
	return nil
}

func (s *S3) ReadPublished(ctx context.Context, name string) ([]byte, error) {
	objKey := s.cfg.PublishPrefix + "/" + name
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", objKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
