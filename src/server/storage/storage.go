package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage archives submitted share documents.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Presigner is implemented by backends that can hand out temporary
// download URLs instead of streaming objects through the server.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentKey is the object key of the archived document of a
// reconstruction.
func DocumentKey(reconstructionID string) string {
	return "documents/" + reconstructionID + ".json"
}
