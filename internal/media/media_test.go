package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"socially/internal/config"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	t.Parallel()

	png := pngBytes(t, 8, 8)

	var webpBuf bytes.Buffer
	require.NoError(t, webp.Encode(&webpBuf, testImage(8, 8), &webp.Options{Quality: 70}))

	tests := []struct {
		name    string
		data    []byte
		c       Constraints
		wantErr error
	}{
		{"png accepted", png, PostImageConstraints, nil},
		{"empty", nil, PostImageConstraints, ErrEmpty},
		{"too large", png, PostImageConstraints.WithMaxBytes(10), ErrTooLarge},
		{"not an image", []byte("hello, this is plain text"), PostImageConstraints, ErrInvalidImage},
		{"webp not allowed for posts", webpBuf.Bytes(), PostImageConstraints, ErrUnsupportedFormat},
		{"format outside list", png, Constraints{AllowedFormats: []string{"jpg"}}, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := validate(tt.data, tt.c)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "png", decoded.format)
		})
	}
}

func TestDecodeDataURL(t *testing.T) {
	t.Parallel()

	raw := pngBytes(t, 2, 2)
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeDataURL("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodeDataURL(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = DecodeDataURL("")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = DecodeDataURL("data:image/png," + encoded)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = DecodeDataURL("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestLocalStore_UploadWritesMasters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewLocalStore(root, "http://cdn.test")

	url, err := store.Upload(context.Background(), pngBytes(t, 3000, 1000), PostImageConstraints)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^http://cdn\.test/media/i/posts/[a-f0-9]{64}/master\.jpg$`), url)

	rel := strings.TrimPrefix(url, "http://cdn.test/media/i/")
	jpgPath := filepath.Join(root, filepath.FromSlash(rel))
	webpPath := filepath.Join(filepath.Dir(jpgPath), "master.webp")

	f, err := os.Open(jpgPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, MasterMaxSize, cfg.Width)
	assert.Equal(t, 682, cfg.Height)

	info, err := os.Stat(webpPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestLocalStore_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewLocalStore(root, "")

	_, err := store.Upload(context.Background(), []byte("nope"), PostImageConstraints)
	assert.ErrorIs(t, err, ErrInvalidImage)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResizeToFit_KeepsSmallImages(t *testing.T) {
	t.Parallel()

	src := testImage(100, 50)
	assert.Same(t, image.Image(src), resizeToFit(src, MasterMaxSize, MasterMaxSize))

	tall := resizeToFit(testImage(10, 4096), MasterMaxSize, MasterMaxSize)
	assert.Equal(t, 5, tall.Bounds().Dx())
	assert.Equal(t, MasterMaxSize, tall.Bounds().Dy())
}

type fakePutter struct {
	req *oss.PutObjectRequest
	err error
}

func (f *fakePutter) PutObject(_ context.Context, req *oss.PutObjectRequest, _ ...func(*oss.Options)) (*oss.PutObjectResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &oss.PutObjectResult{}, nil
}

func TestOSSStore_Upload(t *testing.T) {
	t.Parallel()

	putter := &fakePutter{}
	store := newOSSStore(putter, OSSConfig{
		Endpoint:      "https://oss-cn-hangzhou.aliyuncs.com",
		Bucket:        "socially-media",
		PublicBaseURL: "https://img.example.com/",
	})
	store.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }

	url, err := store.Upload(context.Background(), pngBytes(t, 4, 4), PostImageConstraints)
	require.NoError(t, err)

	require.NotNil(t, putter.req)
	assert.Equal(t, "socially-media", *putter.req.Bucket)
	key := *putter.req.Key
	assert.Regexp(t, regexp.MustCompile(`^posts/2026/03/09/[0-9a-f-]{36}\.png$`), key)
	assert.Equal(t, "image/png", *putter.req.ContentType)
	assert.Equal(t, "https://img.example.com/"+key, url)
}

func TestOSSStore_DefaultURLAndFailure(t *testing.T) {
	t.Parallel()

	putter := &fakePutter{err: errors.New("access denied")}
	store := newOSSStore(putter, OSSConfig{
		Endpoint: "https://oss-cn-hangzhou.aliyuncs.com",
		Bucket:   "b",
	})
	assert.Equal(t, "https://b.oss-cn-hangzhou.aliyuncs.com", store.baseURL)

	_, err := store.Upload(context.Background(), pngBytes(t, 4, 4), PostImageConstraints)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = store.Upload(context.Background(), []byte("x"), PostImageConstraints)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	s, err := NewStore(&config.Config{MediaBackend: "local", MediaUploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = NewStore(&config.Config{
		MediaBackend: "oss", OSSEndpoint: "oss-cn-hangzhou.aliyuncs.com", OSSRegion: "cn-hangzhou",
		OSSBucket: "b", OSSAccessKeyID: "id", OSSAccessKeySecret: "secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &OSSStore{}, s)

	_, err = NewStore(&config.Config{MediaBackend: "ftp"})
	assert.Error(t, err)
}
