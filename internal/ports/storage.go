package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// localfs returns the object key unchanged; gdrive returns the file id
	// that later reads and deletes need.
	ObjectKey string
	Size      int64
}

// StorageProvider archives rendered images (localfs, gdrive).
// GetObject and DeleteObject return an error matching os.ErrNotExist when
// the object is gone.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
