package imagestore

import "context"

//go:generate mockgen -source=interfaces.go -destination=internal/mocks/storage_mocks.go -package=mocks

// Storage persists a processed pair of renderings and addresses stored keys
// publicly. Implementations must be safe for concurrent use by multiple
// in-flight uploads.
type Storage interface {
	// Store persists both renderings under the given target extension and
	// returns their public locations plus the byte size of the full variant.
	Store(ctx context.Context, full, thumb *Rendering, ext string) (*StoredImages, error)

	// PublicURL builds the public location of a stored key without touching
	// the backend.
	PublicURL(key string, variant Variant) string
}
