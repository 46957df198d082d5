package media

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// OriginKind distinguishes local files from remote URLs.
type OriginKind int

const (
	LocalFile OriginKind = iota
	RemoteURL
)

// MaxSourceBytes is the largest local source accepted for export.
const MaxSourceBytes = 500 * 1024 * 1024

// AllowedExtensions lists the container extensions accepted as sources.
var AllowedExtensions = []string{"mp4", "webm", "ogg", "mkv", "avi", "mov", "wav", "mp3"}

// Origin describes where the loaded media came from.
type Origin struct {
	Kind     OriginKind
	Location string
}

// ParseOrigin classifies a user-supplied location as a URL or a file path.
func ParseOrigin(location string) (Origin, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Origin{}, fmt.Errorf("source location is required")
	}

	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if u.Host == "" {
			return Origin{}, fmt.Errorf("source URL %q has no host", location)
		}
		return Origin{Kind: RemoteURL, Location: location}, nil
	}
	return Origin{Kind: LocalFile, Location: location}, nil
}

// IsLocalFile reports whether the source bytes are locally readable.
func (o Origin) IsLocalFile() bool {
	return o.Kind == LocalFile
}

// Filename returns the last path element of the location.
func (o Origin) Filename() string {
	if o.Kind == RemoteURL {
		if u, err := url.Parse(o.Location); err == nil {
			if name := path.Base(u.Path); name != "/" && name != "." {
				return name
			}
		}
		return "media"
	}
	return filepath.Base(o.Location)
}

// Basename returns the filename without its extension.
func (o Origin) Basename() string {
	name := o.Filename()
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		return "media"
	}
	return name
}

// Extension returns the lower-case extension without the dot.
func (o Origin) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(o.Filename())), ".")
}

// ValidateExtension checks the source against AllowedExtensions.
func (o Origin) ValidateExtension() error {
	ext := o.Extension()
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported source type %q (allowed: %s)", ext, strings.Join(AllowedExtensions, ", "))
}
