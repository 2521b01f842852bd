package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPathComponent is returned when a provider or job id could
// escape its directory.
var ErrInvalidPathComponent = errors.New("project: invalid path component")

// Resolver maps a unit of work to its output file. The same arguments
// always produce the same path, and distinct job ids never share one.
type Resolver struct {
	root string
}

// NewResolver creates a resolver writing under root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// ResolveOutputPath returns
// <root>/<project>/videos/<provider>/<slug(prompt)>/<jobID>_<index>.mp4.
// It does not touch the filesystem.
func (r *Resolver) ResolveOutputPath(project, providerID, prompt, jobID string, index int) (string, error) {
	name, err := SanitizeName(project)
	if err != nil {
		return "", err
	}
	for _, part := range []string{providerID, jobID} {
		if part == "" || part == "." || strings.Contains(part, "..") || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPathComponent, part)
		}
	}
	if index < 0 {
		return "", fmt.Errorf("%w: negative unit index %d", ErrInvalidPathComponent, index)
	}

	file := fmt.Sprintf("%s_%d.mp4", jobID, index)
	return filepath.Join(r.root, name, VideosDir, providerID, Slug(prompt), file), nil
}

// URLPath converts a path under root into the slash-separated form served
// at /projects/. ok is false when path lies outside root.
func (r *Resolver) URLPath(path string) (string, bool) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return "/projects/" + filepath.ToSlash(rel), true
}
