// Package s3 persists renderings in an S3 bucket under time-based keys.
// Without a custom domain the returned URLs are presigned and expire.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/renanfs/imagestore"
)

// DefaultURLExpiration is the presigned URL validity in seconds.
const DefaultURLExpiration = 3600

type Config struct {
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket          string `envconfig:"S3_BUCKET" required:"true"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" required:"true"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" required:"true"`
	Endpoint        string `envconfig:"S3_ENDPOINT"`
	UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`
	Prefix          string `envconfig:"S3_KEY_PREFIX"`
	CustomDomain    string `envconfig:"S3_CUSTOM_DOMAIN"`
	URLExpiration   int    `envconfig:"S3_URL_EXPIRATION" default:"3600"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading s3 storage config: %w", err)
	}
	return cfg, nil
}

type Storage struct {
	client        *awss3.Client
	presigner     *awss3.PresignClient
	region        string
	bucket        string
	prefix        string
	customDomain  string
	urlExpiration time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

var _ imagestore.Storage = (*Storage)(nil)

func New(cfg Config, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	opts := []func(*awss3.Options){
		func(o *awss3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := awss3.New(awss3.Options{}, opts...)

	expiration := cfg.URLExpiration
	if expiration <= 0 {
		expiration = DefaultURLExpiration
	}

	return &Storage{
		client:        client,
		presigner:     awss3.NewPresignClient(client),
		region:        cfg.Region,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		customDomain:  cfg.CustomDomain,
		urlExpiration: time.Duration(expiration) * time.Second,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Store serializes both renderings and uploads them concurrently. When one of
// the pair fails, the sibling that may have landed is deleted so no orphan
// stays behind.
func (s *Storage) Store(ctx context.Context, full, thumb *imagestore.Rendering, ext string) (*imagestore.StoredImages, error) {
	fullKey, thumbKey := s.objectKeys(ext)

	fullBuf, err := full.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serializing full image: %w", err)
	}
	thumbBuf, err := thumb.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serializing thumbnail: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.putObject(gctx, fullKey, fullBuf, ext) })
	g.Go(func() error { return s.putObject(gctx, thumbKey, thumbBuf, ext) })
	if err := g.Wait(); err != nil {
		s.deleteQuietly(ctx, fullKey)
		s.deleteQuietly(ctx, thumbKey)
		return nil, err
	}

	var fullURL, thumbURL string
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fullURL, err = s.resolveURL(gctx, fullKey)
		return err
	})
	g.Go(func() error {
		var err error
		thumbURL, err = s.resolveURL(gctx, thumbKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &imagestore.StoredImages{
		FullURL:  fullURL,
		ThumbURL: thumbURL,
		FileSize: int64(len(fullBuf)),
	}, nil
}

func (s *Storage) objectKeys(ext string) (string, string) {
	timestamp := s.now().UnixMilli()
	fullKey := fmt.Sprintf("%sfull/%d.%s", s.prefix, timestamp, ext)
	thumbKey := fmt.Sprintf("%sthumb/%d.%s", s.prefix, timestamp, ext)
	return fullKey, thumbKey
}

func (s *Storage) putObject(ctx context.Context, key string, body []byte, ext string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("image/" + ext),
	})
	if err != nil {
		s.logger.Error("failed to upload image to s3", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("uploading %s to s3: %w", key, err)
	}
	return nil
}

// deleteQuietly removes a key that may or may not exist after a failed pair
// upload. Errors are logged and swallowed.
func (s *Storage) deleteQuietly(ctx context.Context, key string) {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Warn("failed to clean up object after partial upload", zap.String("key", key), zap.Error(err))
	}
}

// resolveURL returns the storage-time URL for a key: the custom-domain form
// when configured, otherwise a fresh presigned GET bounded by the configured
// expiration.
func (s *Storage) resolveURL(ctx context.Context, key string) (string, error) {
	if s.customDomain != "" {
		return fmt.Sprintf("%s/%s", s.customDomain, key), nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *awss3.PresignOptions) {
		opts.Expires = s.urlExpiration
	})
	if err != nil {
		s.logger.Error("failed to generate presigned url", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("generating presigned url: %w", err)
	}
	return req.URL, nil
}

// PublicURL is the stable, unsigned address form. Buckets not fronted by a
// custom domain need a public read policy for it to resolve.
func (s *Storage) PublicURL(key string, _ imagestore.Variant) string {
	if s.customDomain != "" {
		return fmt.Sprintf("%s/%s", s.customDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
