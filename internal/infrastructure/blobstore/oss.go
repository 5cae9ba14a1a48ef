package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	domainerrors "qrbook.backend/internal/domain/errors"
)

// Bucket is the subset of *oss.Bucket the store uses.
type Bucket interface {
	PutObject(objectKey string, reader io.Reader, options ...oss.Option) error
	GetObject(objectKey string, options ...oss.Option) (io.ReadCloser, error)
	DeleteObject(objectKey string, options ...oss.Option) error
}

// OSSConfig identifies the bucket images are written to
type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
}

// OSSStore keeps blobs as objects under a key prefix
type OSSStore struct {
	bucket Bucket
	prefix string
}

// NewOSSStore connects to the configured bucket.
func NewOSSStore(cfg OSSConfig) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, errors.New("oss: endpoint, access key and bucket are required")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	return NewOSSStoreWithBucket(bkt, cfg.Prefix), nil
}

// NewOSSStoreWithBucket wraps an existing bucket handle.
func NewOSSStoreWithBucket(bucket Bucket, prefix string) *OSSStore {
	return &OSSStore{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *OSSStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *OSSStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	err := s.bucket.PutObject(s.key(name), bytes.NewReader(data),
		oss.WithContext(ctx),
		oss.ContentType(http.DetectContentType(data)),
		oss.CacheControl("public, max-age=31536000, immutable"),
	)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return PublicPath(name), nil
}

func (s *OSSStore) Serve(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, domainerrors.ErrNotFound
	}
	body, err := s.bucket.GetObject(s.key(name), oss.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (s *OSSStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.bucket.DeleteObject(s.key(name), oss.WithContext(ctx)); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var se oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}
