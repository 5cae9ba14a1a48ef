// Package imageutil normalizes uploaded profile images.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"path"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	domainerrors "qrbook.backend/internal/domain/errors"
)

const (
	// DefaultMaxDimension bounds both sides of a normalized image.
	DefaultMaxDimension = 1024
	// JPEGQuality is used when re-encoding.
	JPEGQuality = 85

	maxNameLength = 100
)

// Normalizer decodes JPEG, PNG and WebP uploads, fits them into a square
// of MaxDimension and re-encodes them as JPEG.
type Normalizer struct {
	MaxDimension int
}

func NewNormalizer(maxDimension int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Normalizer{MaxDimension: maxDimension}
}

// Normalize returns the re-encoded image. Input that is not a supported
// image yields a validation error.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: profile image must be a JPEG, PNG or WebP image", domainerrors.ErrValidation)
	}

	img = imaging.Fit(img, n.MaxDimension, n.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// DetectContentType sniffs the MIME type of stored image bytes.
func DetectContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	switch ct := DetectContentType(data); {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "png"):
		return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	case strings.Contains(ct, "webp"):
		return webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported format %s", ct)
	}
}

// SanitizeFilename reduces an uploaded file name to a bare name made of
// letters, digits, dots, dashes and underscores.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	if out == "" {
		return "image"
	}
	return out
}
