// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"maps"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/repoindex/pkg/manifest"
)

// BuildJar returns the bytes of an archive whose manifest carries headers.
// A nil headers map produces an archive without a manifest entry. entries
// adds further files keyed by archive path.
func BuildJar(t testing.TB, headers manifest.Headers, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if headers != nil {
		w, err := zw.Create(manifest.Path)
		if err != nil {
			t.Fatalf("failed to create manifest entry: %v", err)
		}
		if err := manifest.Write(w, headers); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
	return buf.Bytes()
}

// WriteJar writes BuildJar(headers, entries) to dir/name and returns the path.
func WriteJar(t testing.TB, dir, name string, headers manifest.Headers, entries map[string][]byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	MustWriteFile(t, p, BuildJar(t, headers, entries))
	return p
}

// BundleHeaders returns the minimal headers of a bundle named bsn at version v,
// merged with extra.
func BundleHeaders(bsn, v string, extra manifest.Headers) manifest.Headers {
	h := manifest.Headers{
		manifest.BundleManifestVersion: "2",
		manifest.BundleSymbolicName:    bsn,
	}
	if v != "" {
		h[manifest.BundleVersion] = v
	}
	maps.Copy(h, extra)
	return h
}
