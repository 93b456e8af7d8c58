// SPDX-License-Identifier: MPL-2.0

// Package resource provides the inputs to manifest analysis: archives on disk
// or in memory, exposing their manifest headers, a re-readable content
// stream, a byte length and a location.
package resource

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/invowk/repoindex/pkg/manifest"
)

// Property keys reported by Properties in addition to the manifest headers.
const (
	PropName         = "name"
	PropLocation     = "location"
	PropSize         = "size"
	PropLastModified = "lastmodified"
)

type (
	// Resource is a module archive under analysis. Open may be called more
	// than once; each call returns an independent stream from the start.
	Resource interface {
		Location() string
		Size() int64
		Open() (io.ReadCloser, error)
		// Manifest returns the main manifest section. Archives without a
		// manifest return manifest.ErrNoManifest.
		Manifest() (manifest.Headers, error)
		// Properties returns the values analyzer predicates are matched against.
		Properties() map[string]any
	}

	// File is an archive on the local filesystem. The manifest is read once
	// when the File is opened.
	File struct {
		path        string
		size        int64
		modTime     time.Time
		headers     manifest.Headers
		manifestErr error
	}

	// Memory is an archive held in memory.
	Memory struct {
		location    string
		data        []byte
		modTime     time.Time
		headers     manifest.Headers
		manifestErr error
	}
)

// OpenFile stats the file at p and reads its manifest. Only failures to
// access the file are returned; a missing or malformed manifest is reported
// later by Manifest.
func OpenFile(p string) (*File, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	f := &File{path: abs, size: info.Size(), modTime: info.ModTime()}
	f.headers, f.manifestErr = readFileManifest(abs)
	return f, nil
}

func readFileManifest(p string) (h manifest.Headers, err error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return manifest.ReadArchive(&zr.Reader)
}

// Location returns the absolute path of the file.
func (f *File) Location() string { return f.path }

// Size returns the file size in bytes.
func (f *File) Size() int64 { return f.size }

// Open opens the file for reading.
func (f *File) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// Manifest returns the manifest read by OpenFile.
func (f *File) Manifest() (manifest.Headers, error) { return f.headers, f.manifestErr }

// Properties implements Resource.
func (f *File) Properties() map[string]any {
	return properties(filepath.Base(f.path), f.path, f.size, f.modTime, f.headers)
}

// NewMemory wraps archive bytes. location is reported verbatim and its last
// path element becomes the resource name.
func NewMemory(location string, data []byte) *Memory {
	m := &Memory{location: location, data: data, modTime: time.Now()}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		m.manifestErr = fmt.Errorf("open archive: %w", err)
		return m
	}
	m.headers, m.manifestErr = manifest.ReadArchive(zr)
	return m
}

// Location implements Resource.
func (m *Memory) Location() string { return m.location }

// Size implements Resource.
func (m *Memory) Size() int64 { return int64(len(m.data)) }

// Open implements Resource.
func (m *Memory) Open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(m.data)), nil }

// Manifest implements Resource.
func (m *Memory) Manifest() (manifest.Headers, error) { return m.headers, m.manifestErr }

// Properties implements Resource.
func (m *Memory) Properties() map[string]any {
	return properties(path.Base(filepath.ToSlash(m.location)), m.location, m.Size(), m.modTime, m.headers)
}

func properties(name, location string, size int64, modTime time.Time, headers manifest.Headers) map[string]any {
	props := make(map[string]any, len(headers)+4)
	for k, v := range headers {
		props[k] = v
	}
	props[PropName] = name
	props[PropLocation] = location
	props[PropSize] = size
	props[PropLastModified] = modTime.UnixMilli()
	return props
}
