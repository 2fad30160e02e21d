// Package media resolves image attachments to durable URLs via object
// storage.
package media

import (
	"context"
	"errors"
	"io"
)

// Upload errors.
var (
	ErrEmptyFilename = errors.New("filename cannot be empty")
	ErrNilBlob       = errors.New("blob reader cannot be nil")
)

// Uploader stores an image blob and returns a durable fetch URL.
// Objects are namespaced under a fixed prefix plus the blob's original
// filename; callers that have no blob substitute the configured
// placeholder URL instead of calling this service.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, blob io.Reader, size int64) (string, error)
}
