package distribution

import (
	"context"
	"time"
)

// DriveClient is the storage side of a cloud delivery target.
// This is a port that can be implemented by different infrastructure adapters
type DriveClient interface {
	// GetStorageQuota returns the current storage quota information
	GetStorageQuota(ctx context.Context) (*StorageInfo, error)

	// ListByAge lists the files in a folder, oldest first
	ListByAge(ctx context.Context, folderID string) ([]FileInfo, error)

	// DeletePermanently deletes a file permanently (bypasses trash)
	DeletePermanently(ctx context.Context, fileID string) error
}

// FileInfo represents metadata about a stored export
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	CreatedTime time.Time
	WebViewLink string
}
