package s3_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/renanfs/imagestore"
	"github.com/renanfs/imagestore/storage/s3"
)

func setupMinio(t *testing.T) s3.Config {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	cfg := s3.Config{
		Region:          "us-east-1",
		Bucket:          "images-test",
		AccessKeyID:     container.Username,
		SecretAccessKey: container.Password,
		Endpoint:        "http://" + endpoint,
		UsePathStyle:    true,
		Prefix:          "uploads/",
	}

	createBucket(t, cfg)
	return cfg
}

func createBucket(t *testing.T, cfg s3.Config) {
	t.Helper()

	client := awss3.New(awss3.Options{}, func(o *awss3.Options) {
		o.Region = cfg.Region
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
}

func processedPair(t *testing.T) *imagestore.Processed {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	processed, err := imagestore.Process(imagestore.FileUpload{
		OriginalName: "photo.png",
		Buffer:       buf.Bytes(),
	}, imagestore.UploadOptions{Thumbnail: &imagestore.Bounds{MaxWidth: 120}})
	require.NoError(t, err)
	return processed
}

func TestStorage_Store_Integration(t *testing.T) {
	cfg := setupMinio(t)

	storage, err := s3.New(cfg, nil)
	require.NoError(t, err)

	processed := processedPair(t)

	stored, err := storage.Store(context.Background(), processed.Full, processed.Thumb, processed.Ext)
	require.NoError(t, err)

	assert.Positive(t, stored.FileSize)

	// both presigned URLs resolve and the full variant matches the
	// reported size
	body := fetch(t, stored.FullURL)
	assert.Equal(t, stored.FileSize, int64(len(body)))
	fetch(t, stored.ThumbURL)

	// signed URLs carry the configured expiration window
	parsed, err := url.Parse(stored.FullURL)
	require.NoError(t, err)
	expires, err := strconv.Atoi(parsed.Query().Get("X-Amz-Expires"))
	require.NoError(t, err)
	assert.Equal(t, s3.DefaultURLExpiration, expires)
}

func fetch(t *testing.T, rawURL string) []byte {
	t.Helper()

	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}
