// Package id provides unique identifier generation for jobs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Length is the number of hex characters in a job ID.
const Length = 12

// Generate creates a new job ID: the first 12 hex digits of a random UUID.
// Example: 3f2a9c1b7e4d
func Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:Length]
}
