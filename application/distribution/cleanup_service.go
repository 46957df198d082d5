package distribution

import (
	"context"
	"fmt"

	"vidflow/domain/distribution"

	"github.com/sirupsen/logrus"
)

// CleanupService frees space in the export folder by deleting old exports
type CleanupService struct {
	driveClient distribution.DriveClient
	folderID    string
	log         *logrus.Entry
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(client distribution.DriveClient, folderID string) *CleanupService {
	return &CleanupService{
		driveClient: client,
		folderID:    folderID,
		log:         logrus.WithField("component", "cleanup"),
	}
}

// EnsureSpaceAvailable deletes the oldest files in the export folder until
// neededBytes fit. Files named keep are never deleted.
func (s *CleanupService) EnsureSpaceAvailable(ctx context.Context, neededBytes int64, keep string) (*distribution.CleanupResult, error) {
	result := &distribution.CleanupResult{}

	for {
		storage, err := s.driveClient.GetStorageQuota(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to check storage: %w", err)
		}

		if storage.HasSpaceFor(neededBytes) {
			return result, nil
		}

		files, err := s.driveClient.ListByAge(ctx, s.folderID)
		if err != nil {
			return result, fmt.Errorf("failed to list files: %w", err)
		}

		oldest, ok := firstDeletable(files, keep)
		if !ok {
			return result, fmt.Errorf("no exports left to delete, need %d more bytes",
				storage.Shortfall(neededBytes))
		}

		if err := s.driveClient.DeletePermanently(ctx, oldest.ID); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", oldest.Name, err)
		}
		s.log.WithFields(logrus.Fields{
			"name":  oldest.Name,
			"bytes": oldest.Size,
		}).Info("deleted old export to free space")

		result.DeletedFiles = append(result.DeletedFiles, distribution.DeletedFile{
			Name: oldest.Name,
			Size: oldest.Size,
		})
		result.FreedBytes += oldest.Size
	}
}

func firstDeletable(files []distribution.FileInfo, keep string) (distribution.FileInfo, bool) {
	for _, f := range files {
		if f.Name != keep {
			return f, true
		}
	}
	return distribution.FileInfo{}, false
}
