package imagestore

// FileUpload is one uploaded file as received from the hosting application's
// transport layer. The declared MimeType and Size are informational only; the
// pipeline derives the real format and dimensions by decoding Buffer.
type FileUpload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Buffer       []byte
}

// ImageMetadata holds the intrinsic properties of the decoded source image.
type ImageMetadata struct {
	Width  int
	Height int
	Format string
}

// Variant identifies which of the two renderings a stored key addresses.
type Variant string

const (
	VariantFull  Variant = "full"
	VariantThumb Variant = "thumb"
)

// StoredImages is what a storage strategy reports after persisting an upload.
// FileSize is the byte size of the full variant.
type StoredImages struct {
	FullURL  string
	ThumbURL string
	FileSize int64
}

// UploadResult describes a completed upload. Width and Height are the source
// image's dimensions as decoded, before any resize was applied.
type UploadResult struct {
	FullURL          string `json:"fullUrl"`
	ThumbURL         string `json:"thumbUrl"`
	MimeType         string `json:"mimeType"`
	FileSize         int64  `json:"fileSize"`
	OriginalFilename string `json:"originalFilename"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
}
