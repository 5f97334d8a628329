package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"socially/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	MasterMaxSize = 2048
	JPEGQuality   = 82
	WebPQuality   = 70
)

// LocalStore writes a downscaled JPEG master and a WebP sibling under a
// content-addressed directory on disk.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore stores files below root and builds URLs on baseURL
// (which may be empty for host-relative URLs).
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: baseURL}
}

// Root is the directory served under /media/i.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, c Constraints) (url string, err error) {
	defer func() {
		observability.MediaUploads.WithLabelValues("local", observability.OutcomeOf(err)).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	decoded, err := validate(data, c)
	if err != nil {
		return "", err
	}

	master := resizeToFit(decoded.img, MasterMaxSize, MasterMaxSize)
	masterJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return "", err
	}
	masterWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(masterJPG)
	hash := hex.EncodeToString(sum[:])
	dir := filepath.Join(s.root, c.Folder, hash)

	jpgPath := filepath.Join(dir, "master.jpg")
	webpPath := filepath.Join(dir, "master.webp")
	if err := writeBytesToFile(jpgPath, masterJPG); err != nil {
		return "", err
	}
	if err := writeBytesToFile(webpPath, masterWebP); err != nil {
		_ = os.Remove(jpgPath)
		return "", err
	}

	return s.baseURL + "/media/i/" + filepath.ToSlash(filepath.Join(c.Folder, hash, "master.jpg")), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
