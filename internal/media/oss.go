package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"socially/internal/observability"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"
)

// OSSConfig holds the Aliyun OSS bucket settings.
type OSSConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	// PublicBaseURL is the bucket's public (or CDN) origin. When empty the
	// virtual-hosted bucket URL is used.
	PublicBaseURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, request *oss.PutObjectRequest, optFns ...func(*oss.Options)) (*oss.PutObjectResult, error)
}

// OSSStore uploads the original image bytes to an OSS bucket.
type OSSStore struct {
	client  objectPutter
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewOSSStore creates an OSS client from cfg.
func NewOSSStore(cfg OSSConfig) *OSSStore {
	ossCfg := oss.LoadDefaultConfig().
		WithEndpoint(cfg.Endpoint).
		WithRegion(cfg.Region).
		WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret),
		)
	return newOSSStore(oss.NewClient(ossCfg), cfg)
}

func newOSSStore(client objectPutter, cfg OSSConfig) *OSSStore {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		baseURL = fmt.Sprintf("https://%s.%s", cfg.Bucket, endpoint)
	}
	return &OSSStore{client: client, bucket: cfg.Bucket, baseURL: baseURL, now: time.Now}
}

func (s *OSSStore) Upload(ctx context.Context, data []byte, c Constraints) (url string, err error) {
	defer func() {
		observability.MediaUploads.WithLabelValues("oss", observability.OutcomeOf(err)).Inc()
	}()

	decoded, err := validate(data, c)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%s/%s.%s",
		c.Folder,
		s.now().UTC().Format("2006/01/02"),
		uuid.NewString(),
		extensionFor(decoded.format),
	)

	if _, err := s.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(s.bucket),
		Key:         oss.Ptr(objectKey),
		ContentType: oss.Ptr(contentTypeFor(decoded.format)),
		Body:        bytes.NewReader(data),
	}); err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}

	return s.baseURL + "/" + objectKey, nil
}
