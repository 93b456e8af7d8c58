// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a path to a config file, config directory or archive.
	// The empty value means "not set" to callers that treat it as optional;
	// Validate itself rejects it.
	FilesystemPath string

	// InvalidFilesystemPathError is returned for an empty or blank path.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

func (p FilesystemPath) String() string { return string(p) }

// Validate rejects empty and whitespace-only paths.
func (p FilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) != "" {
		return nil
	}
	return &InvalidFilesystemPathError{Value: p}
}

// Join appends elem to p with the platform separator. An unset p joins
// relative to the working directory.
func (p FilesystemPath) Join(elem ...string) FilesystemPath {
	return FilesystemPath(filepath.Join(append([]string{string(p)}, elem...)...))
}

func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must not be blank", e.Value)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
