// Package cloudflare uploads the full rendering to Cloudflare Images.
// Thumbnails are not generated client-side; the service derives them through
// a named variant.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/renanfs/imagestore"
)

// ErrMissingAssetID reports an upload response with no usable asset id. It is
// a hard failure, equivalent to any other backend error.
var ErrMissingAssetID = errors.New("cloudflare response contains no asset id")

const (
	defaultAPIBase      = "https://api.cloudflare.com"
	defaultVariantFull  = "public"
	defaultVariantThumb = "thumbnail"
)

type Config struct {
	AccountID    string `envconfig:"CLOUDFLARE_ACCOUNT_ID" required:"true"`
	APIToken     string `envconfig:"CLOUDFLARE_API_TOKEN" required:"true"`
	VariantFull  string `envconfig:"CLOUDFLARE_VARIANT_FULL" default:"public"`
	VariantThumb string `envconfig:"CLOUDFLARE_VARIANT_THUMB" default:"thumbnail"`
	// APIBase overrides the Cloudflare endpoint, mainly for tests.
	APIBase string `envconfig:"CLOUDFLARE_API_BASE"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading cloudflare storage config: %w", err)
	}
	return cfg, nil
}

type Storage struct {
	accountID    string
	apiToken     string
	variantFull  string
	variantThumb string
	apiBase      string
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ imagestore.Storage = (*Storage)(nil)

func New(cfg Config, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AccountID == "" {
		return nil, errors.New("cloudflare storage requires an account id")
	}
	if cfg.APIToken == "" {
		return nil, errors.New("cloudflare storage requires an api token")
	}

	s := &Storage{
		accountID:    cfg.AccountID,
		apiToken:     cfg.APIToken,
		variantFull:  cfg.VariantFull,
		variantThumb: cfg.VariantThumb,
		apiBase:      cfg.APIBase,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
	if s.variantFull == "" {
		s.variantFull = defaultVariantFull
	}
	if s.variantThumb == "" {
		s.variantThumb = defaultVariantThumb
	}
	if s.apiBase == "" {
		s.apiBase = defaultAPIBase
	}
	return s, nil
}

type uploadResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ID   string `json:"id"`
		Size int64  `json:"size"`
	} `json:"result"`
}

// Store uploads only the full rendering as a multipart asset. The returned
// asset id addresses both variants through the service's variant names, and
// the reported size comes from the service's response.
func (s *Storage) Store(ctx context.Context, full, _ *imagestore.Rendering, ext string) (*imagestore.StoredImages, error) {
	buf, err := full.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serializing full image: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fmt.Sprintf("image.%s", ext))
	if err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := part.Write(buf); err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}

	url := fmt.Sprintf("%s/client/v4/accounts/%s/images/v1", s.apiBase, s.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("building cloudflare request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("failed to upload image to cloudflare", zap.Error(err))
		return nil, fmt.Errorf("uploading to cloudflare: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("cloudflare upload rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, fmt.Errorf("uploading to cloudflare: unexpected status %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding cloudflare response: %w", err)
	}
	if parsed.Result.ID == "" {
		s.logger.Error("cloudflare response missing asset id")
		return nil, ErrMissingAssetID
	}

	return &imagestore.StoredImages{
		FullURL:  s.PublicURL(parsed.Result.ID, imagestore.VariantFull),
		ThumbURL: s.PublicURL(parsed.Result.ID, imagestore.VariantThumb),
		FileSize: parsed.Result.Size,
	}, nil
}

func (s *Storage) PublicURL(key string, variant imagestore.Variant) string {
	name := s.variantFull
	if variant == imagestore.VariantThumb {
		name = s.variantThumb
	}
	return fmt.Sprintf("https://imagedelivery.net/%s/%s", key, name)
}
