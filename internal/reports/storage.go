package reports

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines where archived calculation reports are kept
type StorageDriver interface {
	// Save writes the report under key, replacing any existing report
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the report back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the report; deleting a missing report is not an error
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a link clients can fetch the report from
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
