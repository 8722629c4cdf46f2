package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// webp sources are decodable even though output conversion targets are
	// limited to jpeg, png and webp.
	_ "golang.org/x/image/webp"
)

// Processed is the transformer's successful output: both renderings derived
// from a single decode, plus the source metadata used for validation.
type Processed struct {
	Full     *Rendering
	Thumb    *Rendering
	Ext      string
	Metadata ImageMetadata
}

// Process decodes the upload once, validates its intrinsic dimensions against
// the full-image bounds and derives the full and thumbnail renderings. A
// dimension rejection comes back as a *ValidationError and no renderings are
// produced; any other error means the buffer could not be decoded.
func Process(file FileUpload, opts UploadOptions) (*Processed, error) {
	img, format, err := image.Decode(bytes.NewReader(file.Buffer))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := img.Bounds()
	meta := ImageMetadata{Width: b.Dx(), Height: b.Dy(), Format: format}

	if verr := validateDimensions(meta, opts.Full); verr != nil {
		return nil, verr
	}

	ext := resolveExtension(file.OriginalName, opts.ConvertTo)

	full := img
	if opts.Full != nil && (opts.Full.MaxWidth > 0 || opts.Full.MaxHeight > 0) {
		full = fitInside(img, opts.Full.MaxWidth, opts.Full.MaxHeight)
	}

	thumbWidth := DefaultThumbnailWidth
	thumbHeight := 0
	if opts.Thumbnail != nil {
		if opts.Thumbnail.MaxWidth > 0 {
			thumbWidth = opts.Thumbnail.MaxWidth
		}
		thumbHeight = opts.Thumbnail.MaxHeight
	}
	thumb := fitInside(img, thumbWidth, thumbHeight)

	return &Processed{
		Full:     NewRendering(full, ext),
		Thumb:    NewRendering(thumb, ext),
		Ext:      ext,
		Metadata: meta,
	}, nil
}

// resolveExtension prefers the explicit conversion target and falls back to
// the uploaded filename's extension. A filename without an extension yields
// an empty string, kept for compatibility even though it produces stored
// names ending in a bare dot.
func resolveExtension(filename, convertTo string) string {
	if convertTo != "" {
		return convertTo
	}
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// fitInside scales img down to fit a maxWidth×maxHeight box preserving
// aspect ratio. An unset bound falls back to the source dimension, so the
// result is never upscaled and never cropped.
func fitInside(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	w, h := maxWidth, maxHeight
	if w <= 0 {
		w = b.Dx()
	}
	if h <= 0 {
		h = b.Dy()
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
