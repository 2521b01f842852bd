// Package project manages the on-disk project tree that generated clips are
// written into, and resolves deterministic output paths inside it.
package project

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Static errors for project naming.
var (
	// ErrInvalidName is returned when a name is empty after sanitization.
	ErrInvalidName = errors.New("project: name must contain at least one alphanumeric character")
	// ErrPathTraversal is returned when a name contains "..", "/" or "\".
	ErrPathTraversal = errors.New("project: name cannot contain path traversal characters (.., /, \\)")
)

const (
	maxNameLen = 100
	maxSlugLen = 40
	emptySlug  = "untitled"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	nonSlugRuns     = regexp.MustCompile(`[^a-z0-9]+`)
)

// SanitizeName lowercases name, turns spaces into hyphens, drops every
// character outside [a-z0-9-_] and caps the result at 100 characters.
func SanitizeName(name string) (string, error) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", ErrPathTraversal
	}

	s := strings.ReplaceAll(strings.ToLower(fold(name)), " ", "-")
	s = unsafeNameChars.ReplaceAllString(s, "")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	if s == "" {
		return "", ErrInvalidName
	}
	return s, nil
}

// Slug turns a prompt into a folder name: runs of characters outside
// [a-z0-9] become "_", and the result is trimmed and capped at 40 chars.
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(fold(text)))
	s = strings.Trim(nonSlugRuns.ReplaceAllString(s, "_"), "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" {
		return emptySlug
	}
	return s
}

// fold strips combining marks so accented letters keep their base letter
// ("café" becomes "cafe") instead of being dropped.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
