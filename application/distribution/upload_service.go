package distribution

import (
	"context"
	"fmt"

	"vidflow/domain/export"
)

// UploadService delivers artifacts to cloud storage, first deleting the
// oldest exports when the account is out of space.
type UploadService struct {
	downloader export.Downloader
	cleanup    *CleanupService
}

var _ export.Downloader = (*UploadService)(nil)

// NewUploadService wraps downloader with space management
func NewUploadService(downloader export.Downloader, cleanup *CleanupService) *UploadService {
	return &UploadService{
		downloader: downloader,
		cleanup:    cleanup,
	}
}

// Deliver makes room for the artifact and uploads it
func (s *UploadService) Deliver(ctx context.Context, artifact export.Artifact) (string, error) {
	if _, err := s.cleanup.EnsureSpaceAvailable(ctx, int64(len(artifact.Bytes)), artifact.Filename); err != nil {
		return "", fmt.Errorf("make room for %s: %w", artifact.Filename, err)
	}
	return s.downloader.Deliver(ctx, artifact)
}
