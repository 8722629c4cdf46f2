// Package local persists renderings on the local filesystem and serves them
// from a static public URL prefix.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/renanfs/imagestore"
)

type Config struct {
	BasePath  string `envconfig:"LOCAL_STORAGE_BASE_PATH" required:"true"`
	PublicURL string `envconfig:"LOCAL_STORAGE_PUBLIC_URL" required:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading local storage config: %w", err)
	}
	return cfg, nil
}

type Storage struct {
	basePath  string
	publicURL string
	logger    *zap.Logger
}

var _ imagestore.Storage = (*Storage)(nil)

// New creates the base directory if it does not exist yet.
func New(cfg Config, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BasePath == "" {
		return nil, errors.New("local storage requires a base path")
	}
	if cfg.PublicURL == "" {
		return nil, errors.New("local storage requires a public url")
	}

	if _, err := os.Stat(cfg.BasePath); os.IsNotExist(err) {
		logger.Info("creating base directory", zap.String("path", cfg.BasePath))
		if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
			return nil, fmt.Errorf("creating base directory: %w", err)
		}
	}

	return &Storage{
		basePath:  cfg.BasePath,
		publicURL: cfg.PublicURL,
		logger:    logger,
	}, nil
}

// Store writes {id}.{ext} and {id}_thumb.{ext} under the base directory. The
// reported size is read back from the written full-variant file.
func (s *Storage) Store(_ context.Context, full, thumb *imagestore.Rendering, ext string) (*imagestore.StoredImages, error) {
	id := uuid.New().String()
	fullName := fmt.Sprintf("%s.%s", id, ext)
	thumbName := fmt.Sprintf("%s_thumb.%s", id, ext)

	fullPath := filepath.Join(s.basePath, fullName)
	thumbPath := filepath.Join(s.basePath, thumbName)

	if err := full.Save(fullPath); err != nil {
		s.logger.Error("failed to save full image", zap.String("path", fullPath), zap.Error(err))
		return nil, fmt.Errorf("saving full image: %w", err)
	}
	if err := thumb.Save(thumbPath); err != nil {
		s.logger.Error("failed to save thumbnail", zap.String("path", thumbPath), zap.Error(err))
		// do not leave an orphaned full variant behind
		if rmErr := os.Remove(fullPath); rmErr != nil {
			s.logger.Warn("failed to remove full image after thumbnail failure", zap.Error(rmErr))
		}
		return nil, fmt.Errorf("saving thumbnail: %w", err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading stored file size: %w", err)
	}

	return &imagestore.StoredImages{
		FullURL:  s.PublicURL(fullName, imagestore.VariantFull),
		ThumbURL: s.PublicURL(thumbName, imagestore.VariantThumb),
		FileSize: info.Size(),
	}, nil
}

func (s *Storage) PublicURL(key string, _ imagestore.Variant) string {
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}
