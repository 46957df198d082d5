package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vidflow/domain/export"

	"github.com/sirupsen/logrus"
)

// Downloader delivers artifacts into a local directory
type Downloader struct {
	dir string
	log *logrus.Entry
}

// NewDownloader creates a downloader writing into dir
func NewDownloader(dir string) *Downloader {
	return &Downloader{
		dir: dir,
		log: logrus.WithField("component", "delivery"),
	}
}

// Deliver writes the artifact and returns its path. Existing files with the
// same name are replaced.
func (d *Downloader) Deliver(ctx context.Context, artifact export.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(d.dir, filepath.Base(artifact.Filename))
	tmp := path + ".part"
	if err := os.WriteFile(tmp, artifact.Bytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", artifact.Filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize %s: %w", artifact.Filename, err)
	}

	d.log.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(artifact.Bytes),
		"mime":  artifact.MimeType,
	}).Info("artifact saved")
	return path, nil
}

// Ensure Downloader implements export.Downloader
var _ export.Downloader = (*Downloader)(nil)
