package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioUploader implements Uploader on an S3-compatible object store.
type MinioUploader struct {
	client  *minio.Client
	bucket  string
	prefix  string
	baseURL string
}

// MinioConfig holds the settings needed to reach the object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
	// PublicBaseURL is the externally reachable root used to build
	// object URLs, e.g. "https://media.example.com".
	PublicBaseURL string
}

// NewMinioUploader creates a new MinioUploader instance.
func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	return &MinioUploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// EnsureBucket creates the configured bucket when it does not exist.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", u.bucket, err)
	}
	return nil
}

// Upload writes the blob under <prefix>/<filename> and returns its
// durable URL. Keys reuse the original filename, so two uploads with
// the same filename overwrite each other.
func (u *MinioUploader) Upload(ctx context.Context, filename, contentType string, blob io.Reader, size int64) (string, error) {
	if filename == "" {
		return "", ErrEmptyFilename
	}

	if blob == nil {
		return "", ErrNilBlob
	}

	object := path.Join(u.prefix, path.Base(filename))
	_, err := u.client.PutObject(ctx, u.bucket, object, blob, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %q: %w", object, err)
	}

	return fmt.Sprintf("%s/%s/%s", u.baseURL, u.bucket, object), nil
}
