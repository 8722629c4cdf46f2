package imagestore

// DefaultThumbnailWidth bounds thumbnails when neither the configured
// defaults nor the caller set one.
const DefaultThumbnailWidth = 300

// Bounds constrains image dimensions in pixels. A zero field is
// unconstrained.
type Bounds struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// UploadOptions controls output encoding and sizing for one upload. Only the
// Full bounds gate acceptance; Thumbnail bounds are purely a rendering
// directive.
type UploadOptions struct {
	// ConvertTo forces the output encoding ("jpeg", "png" or "webp"). Empty
	// keeps the uploaded filename's extension.
	ConvertTo string
	Full      *Bounds
	Thumbnail *Bounds
}

// merge applies per-call overrides on top of configured defaults. Top-level
// fields merge individually, but a non-nil Full or Thumbnail block replaces
// the default block wholesale rather than merging field by field.
func (o UploadOptions) merge(overrides *UploadOptions) UploadOptions {
	if overrides == nil {
		return o
	}
	merged := o
	if overrides.ConvertTo != "" {
		merged.ConvertTo = overrides.ConvertTo
	}
	if overrides.Full != nil {
		merged.Full = overrides.Full
	}
	if overrides.Thumbnail != nil {
		merged.Thumbnail = overrides.Thumbnail
	}
	return merged
}
