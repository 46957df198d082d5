package filesystem

import (
	"fmt"
	"os"

	"vidflow/domain/export"
	"vidflow/domain/media"
)

// Checker reads local media sources from disk
type Checker struct {
	maxBytes int64
}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{maxBytes: media.MaxSourceBytes}
}

// Exists returns true if the file exists
func (c *Checker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadSource reads a local source file, rejecting files over the size limit
func (c *Checker) ReadSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", path)
	}
	if info.Size() > c.maxBytes {
		return nil, fmt.Errorf("source is %d MB, the limit is %d MB", info.Size()>>20, c.maxBytes>>20)
	}
	return os.ReadFile(path)
}

// Ensure Checker implements export.SourceReader
var _ export.SourceReader = (*Checker)(nil)
