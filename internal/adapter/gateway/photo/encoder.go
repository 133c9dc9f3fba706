// Package photo turns image files into the JPEG data URLs the backend
// stores with stage records.
package photo

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
)

const (
	// MaxFileSize is the largest photo accepted before decoding
	MaxFileSize = 25 << 20

	DefaultMaxDimension = 1600
	DefaultQuality      = 80

	op = "encode photo"
)

// decodable are the formats imaging can read
var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Encoder downsizes and re-encodes photos as JPEG
type Encoder struct {
	fs           afero.Fs
	maxDimension int
	quality      int
}

// NewEncoder creates an encoder. Non-positive settings use the defaults.
func NewEncoder(fs afero.Fs, maxDimension, quality int) *Encoder {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{fs: fs, maxDimension: maxDimension, quality: quality}
}

var _ output.PhotoEncoder = (*Encoder)(nil)

// Encode reads path, rejects anything that is not a supported image, fits
// it inside maxDimension and returns it as a JPEG data URL
func (e *Encoder) Encode(ctx context.Context, path string) (*output.EncodedPhoto, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := e.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Validation(op, fmt.Sprintf("%s does not exist", path))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if info.IsDir() {
		return nil, apperr.Validation(op, fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() > MaxFileSize {
		return nil, apperr.Validation(op, fmt.Sprintf("%s is larger than %d MB", path, MaxFileSize>>20))
	}

	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mtype := mimetype.Detect(data)
	if !decodable[mtype.String()] {
		return nil, apperr.Validation(op, fmt.Sprintf("%s is not a supported image (detected %s)", filepath.Base(path), mtype.String()))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Validation(op, fmt.Sprintf("%s could not be decoded: %v", filepath.Base(path), err))
	}

	b := img.Bounds()
	if b.Dx() > e.maxDimension || b.Dy() > e.maxDimension {
		img = imaging.Fit(img, e.maxDimension, e.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	content := buf.Bytes()
	return &output.EncodedPhoto{
		DataURL:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(content),
		Content:     content,
		ContentType: "image/jpeg",
		SourceName:  filepath.Base(path),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}
