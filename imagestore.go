// Package imagestore implements an image upload pipeline: dimension
// validation, full and thumbnail derivation from a single decode, and
// interchangeable storage backends (local filesystem, S3, Cloudflare
// Images).
package imagestore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Uploader runs the upload pipeline against the storage strategy chosen at
// construction time.
type Uploader struct {
	storage  Storage
	defaults UploadOptions
	logger   *zap.Logger
}

func NewUploader(storage Storage, defaults UploadOptions, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		storage:  storage,
		defaults: defaults,
		logger:   logger,
	}
}

// Upload validates, transforms and persists one image. Dimension rejections
// come back as a *ValidationError before any persistence is attempted;
// storage failures propagate with no partial result.
func (u *Uploader) Upload(ctx context.Context, file FileUpload, overrides *UploadOptions) (*UploadResult, error) {
	opts := u.defaults.merge(overrides)

	processed, err := Process(file, opts)
	if err != nil {
		return nil, err
	}

	stored, err := u.storage.Store(ctx, processed.Full, processed.Thumb, processed.Ext)
	if err != nil {
		return nil, fmt.Errorf("storing renderings: %w", err)
	}

	u.logger.Debug("image stored",
		zap.String("full_url", stored.FullURL),
		zap.String("thumb_url", stored.ThumbURL),
		zap.Int64("file_size", stored.FileSize),
	)

	return &UploadResult{
		FullURL:          stored.FullURL,
		ThumbURL:         stored.ThumbURL,
		MimeType:         "image/" + processed.Ext,
		FileSize:         stored.FileSize,
		OriginalFilename: file.OriginalName,
		Width:            processed.Metadata.Width,
		Height:           processed.Metadata.Height,
	}, nil
}
