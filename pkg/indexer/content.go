// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/invowk/repoindex/pkg/resource"
)

// digestChunkSize is the read buffer size used by Digest.
const digestChunkSize = 32 * 1024

// URL template placeholders.
const (
	PlaceholderSymbolicName = "%s"
	PlaceholderFileName     = "%f"
	PlaceholderVersion      = "%v"
	PlaceholderPath         = "%p"
)

// GenerationContext carries the per-call settings for location resolution.
// The zero value resolves every resource to its raw location.
type GenerationContext struct {
	// RootURL, when set, is the directory every resource must live under.
	// Resolved locations are made relative to it.
	RootURL *url.URL
	// URLTemplate, when set, builds the content URL from placeholders
	// %s (symbolic name), %f (file name), %v (version) and %p (relative directory).
	URLTemplate string
}

// Digest returns the lowercase hex SHA-256 of the resource content.
func Digest(res resource.Resource) (sum string, err error) {
	rc, err := res.Open()
	if err != nil {
		return "", fmt.Errorf("open content: %w", err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := sha256.New()
	buf := make([]byte, digestChunkSize)
	if _, err := io.CopyBuffer(onlyWriter{h}, onlyReader{rc}, buf); err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// onlyReader and onlyWriter hide ReaderFrom/WriterTo so CopyBuffer always
// uses the supplied buffer.
type (
	onlyReader struct{ io.Reader }
	onlyWriter struct{ io.Writer }
)

// ResolveLocation computes the content URL of res for the identity bsn at version v.
func ResolveLocation(res resource.Resource, gen GenerationContext, bsn, v string) (string, error) {
	location := res.Location()
	if gen.RootURL == nil && gen.URLTemplate == "" {
		return location, nil
	}

	loc, err := locationURL(location)
	if err != nil {
		return "", err
	}
	fileName := path.Base(loc.Path)
	dir := (&url.URL{Scheme: loc.Scheme, Host: loc.Host, Path: dirWithSlash(loc.Path)}).String()

	if gen.RootURL != nil {
		root := (&url.URL{Scheme: gen.RootURL.Scheme, Host: gen.RootURL.Host, Path: withSlash(gen.RootURL.Path)}).String()
		rel, ok := strings.CutPrefix(dir, root)
		if !ok {
			return "", &OutsideRootError{Dir: dir, Root: root}
		}
		dir = rel
	}

	if gen.URLTemplate == "" {
		return dir + fileName, nil
	}
	return strings.NewReplacer(
		PlaceholderSymbolicName, bsn,
		PlaceholderFileName, fileName,
		PlaceholderVersion, v,
		PlaceholderPath, dir,
	).Replace(gen.URLTemplate), nil
}

// RootURLFromPath returns the file URL of directory p.
func RootURLFromPath(p string) (*url.URL, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", p, err)
	}
	return &url.URL{Scheme: "file", Path: withSlash(filepathToURLPath(abs))}, nil
}

// ParseRootURL accepts either an absolute URL or a filesystem path.
func ParseRootURL(s string) (*url.URL, error) {
	if u, err := url.Parse(s); err == nil && len(u.Scheme) > 1 {
		return u, nil
	}
	return RootURLFromPath(s)
}

// locationURL interprets location as a URL when it carries a scheme, and as
// a filesystem path otherwise.
func locationURL(location string) (*url.URL, error) {
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		return u, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolve location %s: %w", location, err)
	}
	return &url.URL{Scheme: "file", Path: filepathToURLPath(abs)}, nil
}

func filepathToURLPath(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// dirWithSlash returns the parent directory of p with a trailing slash.
func dirWithSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return withSlash(path.Dir(p))
}
