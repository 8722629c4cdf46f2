package imagestore

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

const jpegQuality = 85

// Rendering is one processed variant (full or thumbnail). It holds decoded
// pixels and serializes them only when a storage strategy asks for bytes.
type Rendering struct {
	img image.Image
	ext string
}

func NewRendering(img image.Image, ext string) *Rendering {
	return &Rendering{img: img, ext: ext}
}

func (r *Rendering) Image() image.Image {
	return r.img
}

// Width returns the rendering's post-resize pixel width.
func (r *Rendering) Width() int {
	return r.img.Bounds().Dx()
}

// Height returns the rendering's post-resize pixel height.
func (r *Rendering) Height() int {
	return r.img.Bounds().Dy()
}

// Encode serializes the rendering to w using its target extension. An
// unrecognized or empty extension falls back to jpeg.
func (r *Rendering) Encode(w io.Writer) error {
	switch r.ext {
	case "png":
		return png.Encode(w, r.img)
	case "gif":
		return gif.Encode(w, r.img, nil)
	case "webp":
		return nativewebp.Encode(w, r.img, nil)
	default:
		return jpeg.Encode(w, r.img, &jpeg.Options{Quality: jpegQuality})
	}
}

func (r *Rendering) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes the rendering into a newly created file at path.
func (r *Rendering) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
