package imagestore

import "fmt"

// Rejection codes carried by ValidationError.
const (
	CodeDimensionsTooSmall = "dimensions_too_small"
	CodeDimensionsTooLarge = "dimensions_too_large"
)

// RequiredBounds names the bound pair the rejected upload failed against: the
// min pair for dimensions_too_small, the max pair for dimensions_too_large.
type RequiredBounds struct {
	MinWidth  int `json:"minWidth,omitempty"`
	MinHeight int `json:"minHeight,omitempty"`
	MaxWidth  int `json:"maxWidth,omitempty"`
	MaxHeight int `json:"maxHeight,omitempty"`
}

// ValidationError is a dimension rejection. It is returned as a plain error
// value and never wraps a backend failure, so callers can branch on it with
// errors.As and show Message directly to users.
type ValidationError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Required RequiredBounds `json:"required"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateDimensions checks the decoded metadata against the full-image
// bounds. Checks run in a fixed order and the first violation wins, so a
// single verdict comes back even when several bounds are broken.
func validateDimensions(meta ImageMetadata, full *Bounds) *ValidationError {
	if full == nil {
		return nil
	}

	if full.MinWidth > 0 && meta.Width < full.MinWidth {
		return &ValidationError{
			Code: CodeDimensionsTooSmall,
			Message: fmt.Sprintf("image width (%dpx) is smaller than minimum required width (%dpx)",
				meta.Width, full.MinWidth),
			Width:    meta.Width,
			Height:   meta.Height,
			Required: RequiredBounds{MinWidth: full.MinWidth, MinHeight: full.MinHeight},
		}
	}

	if full.MinHeight > 0 && meta.Height < full.MinHeight {
		return &ValidationError{
			Code: CodeDimensionsTooSmall,
			Message: fmt.Sprintf("image height (%dpx) is smaller than minimum required height (%dpx)",
				meta.Height, full.MinHeight),
			Width:    meta.Width,
			Height:   meta.Height,
			Required: RequiredBounds{MinWidth: full.MinWidth, MinHeight: full.MinHeight},
		}
	}

	if full.MaxWidth > 0 && meta.Width > full.MaxWidth {
		return &ValidationError{
			Code: CodeDimensionsTooLarge,
			Message: fmt.Sprintf("image width (%dpx) is larger than maximum allowed width (%dpx)",
				meta.Width, full.MaxWidth),
			Width:    meta.Width,
			Height:   meta.Height,
			Required: RequiredBounds{MaxWidth: full.MaxWidth, MaxHeight: full.MaxHeight},
		}
	}

	if full.MaxHeight > 0 && meta.Height > full.MaxHeight {
		return &ValidationError{
			Code: CodeDimensionsTooLarge,
			Message: fmt.Sprintf("image height (%dpx) is larger than maximum allowed height (%dpx)",
				meta.Height, full.MaxHeight),
			Width:    meta.Width,
			Height:   meta.Height,
			Required: RequiredBounds{MaxWidth: full.MaxWidth, MaxHeight: full.MaxHeight},
		}
	}

	return nil
}
