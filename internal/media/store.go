// Package media stores uploaded post images and returns durable URLs for them.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"strings"

	"socially/internal/config"

	_ "golang.org/x/image/webp" // register WebP decoder so WebP uploads are recognised and rejected
)

// Constraints limit what a Store accepts for one upload.
type Constraints struct {
	AllowedFormats []string
	MaxBytes       int64
	Folder         string
}

// PostImageConstraints applies to images attached to posts.
var PostImageConstraints = Constraints{
	AllowedFormats: []string{"jpg", "jpeg", "png", "gif"},
	MaxBytes:       10 << 20,
	Folder:         "posts",
}

// WithMaxBytes returns a copy of c with the size ceiling replaced.
func (c Constraints) WithMaxBytes(n int64) Constraints {
	c.MaxBytes = n
	return c
}

func (c Constraints) allows(format string) bool {
	for _, f := range c.AllowedFormats {
		if normalizeFormat(f) == format {
			return true
		}
	}
	return false
}

var (
	ErrEmpty             = errors.New("image is empty")
	ErrTooLarge          = errors.New("image exceeds the size limit")
	ErrInvalidImage      = errors.New("image could not be decoded")
	ErrUnsupportedFormat = errors.New("image format is not allowed")
)

// Store persists image bytes and returns a URL that stays valid.
type Store interface {
	Upload(ctx context.Context, data []byte, c Constraints) (string, error)
}

// NewStore selects the backend configured by MEDIA_BACKEND.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.MediaBackend {
	case "", "local":
		return NewLocalStore(cfg.MediaUploadDir, cfg.MediaPublicBaseURL), nil
	case "oss":
		return NewOSSStore(OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			Region:          cfg.OSSRegion,
			Bucket:          cfg.OSSBucket,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			PublicBaseURL:   cfg.OSSPublicBaseURL,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.MediaBackend)
	}
}

type decodedImage struct {
	img    image.Image
	format string
}

// validate sniffs and decodes data and checks it against c.
func validate(data []byte, c Constraints) (*decodedImage, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if c.MaxBytes > 0 && int64(len(data)) > c.MaxBytes {
		return nil, fmt.Errorf("%w (max %dMB)", ErrTooLarge, c.MaxBytes/(1024*1024))
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, ErrInvalidImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	format = normalizeFormat(format)
	if !c.allows(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &decodedImage{img: img, format: format}, nil
}

func normalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func contentTypeFor(format string) string {
	return "image/" + format
}

// DecodeDataURL extracts the bytes of a base64 data URL such as
// "data:image/png;base64,iVBOR...". A bare base64 string is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, data, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: expected a base64 data URL", ErrInvalidImage)
		}
		payload = data
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return decoded, nil
}
