package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
)

// MemoryUploader implements Uploader in memory for tests and dev mode.
type MemoryUploader struct {
	baseURL string
	mu      sync.Mutex
	blobs   map[string][]byte
}

// NewMemoryUploader creates a new MemoryUploader instance. baseURL
// plays the role of the object store's public root.
func NewMemoryUploader(baseURL string) *MemoryUploader {
	return &MemoryUploader{
		baseURL: baseURL,
		blobs:   make(map[string][]byte),
	}
}

// Upload stores the blob under the filename and returns a synthetic
// durable URL, mirroring the object-store key layout.
func (u *MemoryUploader) Upload(ctx context.Context, filename, _ string, blob io.Reader, _ int64) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("upload blob: %w", ctx.Err())
	default:
	}

	if filename == "" {
		return "", ErrEmptyFilename
	}

	if blob == nil {
		return "", ErrNilBlob
	}

	data, err := io.ReadAll(blob)
	if err != nil {
		return "", fmt.Errorf("reading blob %q: %w", filename, err)
	}

	object := path.Join("images", path.Base(filename))

	u.mu.Lock()
	u.blobs[object] = data
	u.mu.Unlock()

	return fmt.Sprintf("%s/%s", u.baseURL, object), nil
}

// Blob returns the stored bytes for an object key, for assertions.
func (u *MemoryUploader) Blob(object string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	data, ok := u.blobs[object]
	return data, ok
}
