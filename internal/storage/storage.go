// Package storage mirrors finished clips to object storage. Local project
// folders stay the source of truth; a mirror only publishes a copy and
// returns the URL it can be fetched from.
package storage

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrBucketRequired is returned when a mirror is configured without a bucket.
var ErrBucketRequired = errors.New("storage: bucket is required")

// Keyer maps a local file under the projects root to an object key.
type Keyer struct {
	root   string
	prefix string
}

// NewKeyer creates a Keyer. Keys keep the file's path relative to root,
// under prefix when one is set.
func NewKeyer(root, prefix string) Keyer {
	return Keyer{root: root, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for localPath. Files outside root are keyed
// by their base name.
func (k Keyer) Key(localPath string) string {
	rel := filepath.Base(localPath)
	if k.root != "" {
		if r, err := filepath.Rel(k.root, localPath); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
		}
	}
	return path.Join(k.prefix, filepath.ToSlash(rel))
}

// contentType guesses the object content type from the key's extension.
func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".srt":
		return "application/x-subrip"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
