package exports

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines how exported reports are written to and read from storage
type StorageDriver interface {
	// Save writes the content under key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the file back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the file
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a URL the dashboard can download the export from
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
