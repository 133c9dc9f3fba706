package output

import "context"

// EncodedPhoto is photo evidence ready to upload
type EncodedPhoto struct {
	DataURL     string // data:image/jpeg;base64,...
	Content     []byte // Re-encoded bytes
	ContentType string
	SourceName  string // Base name of the original file
	Width       int
	Height      int
}

// PhotoEncoder turns an image file into evidence
type PhotoEncoder interface {
	Encode(ctx context.Context, path string) (*EncodedPhoto, error)
}
