package domain

import (
	"context"
)

// FileRepository defines the interface for media storage operations
type FileRepository interface {
	// Upload saves a file under key and returns its access URL
	Upload(ctx context.Context, file []byte, key string, contentType string) (string, error)
	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}
