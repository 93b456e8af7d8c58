// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and writes the main section of a JAR manifest
// (META-INF/MANIFEST.MF).
//
// Only the main section is read: parsing stops at the first blank line.
// Continuation lines (starting with a single space) are joined to the
// previous header, and header names are matched case-insensitively.
package manifest

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"strings"
)

// Path is the archive entry holding the manifest.
const Path = "META-INF/MANIFEST.MF"

// Header names consulted by the bundle analyzer.
const (
	ManifestVersion                    = "Manifest-Version"
	BundleManifestVersion              = "Bundle-ManifestVersion"
	BundleName                         = "Bundle-Name"
	BundleSymbolicName                 = "Bundle-SymbolicName"
	BundleVersion                      = "Bundle-Version"
	FragmentHost                       = "Fragment-Host"
	ExportPackage                      = "Export-Package"
	ImportPackage                      = "Import-Package"
	RequireBundle                      = "Require-Bundle"
	ExportService                      = "Export-Service"
	ImportService                      = "Import-Service"
	BundleRequiredExecutionEnvironment = "Bundle-RequiredExecutionEnvironment"
	ProvideCapability                  = "Provide-Capability"
	RequireCapability                  = "Require-Capability"
)

// maxLineWidth is the manifest line length limit in bytes, newline excluded.
const maxLineWidth = 72

var (
	// ErrNoManifest is returned when an archive has no manifest entry.
	ErrNoManifest = errors.New("archive has no " + Path)

	// ErrMalformed is the sentinel error wrapped by MalformedError.
	ErrMalformed = errors.New("malformed manifest")
)

type (
	// Headers is the main section of a manifest keyed by header name.
	Headers map[string]string

	// MalformedError identifies the manifest line that could not be parsed.
	MalformedError struct {
		Line   int
		Reason string
	}
)

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed manifest at line %d: %s", e.Line, e.Reason)
}

// Unwrap returns ErrMalformed for errors.Is() compatibility.
func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Get returns the value of name, trying an exact match before a
// case-insensitive one.
func (h Headers) Get(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Value returns the value of name or "" when absent.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Names returns the header names in sorted order.
func (h Headers) Names() []string {
	return slices.Sorted(maps.Keys(h))
}

// Parse reads the main section of a manifest.
func Parse(r io.Reader) (Headers, error) {
	headers := make(Headers)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var (
		name    string
		value   strings.Builder
		lineNum int
	)
	flush := func() {
		if name != "" {
			headers[name] = value.String()
		}
		name = ""
		value.Reset()
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			break
		}
		if line[0] == ' ' {
			if name == "" {
				return nil, &MalformedError{Line: lineNum, Reason: "continuation line without a header"}
			}
			value.WriteString(line[1:])
			continue
		}

		flush()
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &MalformedError{Line: lineNum, Reason: fmt.Sprintf("missing ':' in %q", line)}
		}
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, &MalformedError{Line: lineNum, Reason: fmt.Sprintf("invalid header name %q", key)}
		}
		name = key
		value.WriteString(strings.TrimPrefix(val, " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	flush()
	return headers, nil
}

// ReadArchive locates and parses the manifest of an opened archive.
func ReadArchive(zr *zip.Reader) (h Headers, err error) {
	f, err := zr.Open(Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("open %s: %w", Path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return Parse(f)
}

// Write emits headers as a manifest main section. Manifest-Version is
// written first (defaulting to "1.0"), remaining headers in sorted order,
// and long lines are wrapped at 72 bytes with continuation lines.
func Write(w io.Writer, headers Headers) error {
	bw := bufio.NewWriter(w)
	manifestVersion := headers.Value(ManifestVersion)
	if manifestVersion == "" {
		manifestVersion = "1.0"
	}
	writeLine(bw, ManifestVersion+": "+manifestVersion)
	for _, name := range headers.Names() {
		if strings.EqualFold(name, ManifestVersion) {
			continue
		}
		writeLine(bw, name+": "+headers[name])
	}
	bw.WriteString("\r\n")
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, line string) {
	first := true
	for len(line) > 0 {
		width := maxLineWidth
		if !first {
			width--
			bw.WriteByte(' ')
		}
		n := min(width, len(line))
		bw.WriteString(line[:n])
		bw.WriteString("\r\n")
		line = line[n:]
		first = false
	}
}
