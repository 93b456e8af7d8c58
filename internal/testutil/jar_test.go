// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/invowk/repoindex/pkg/manifest"
)

func TestBuildJar(t *testing.T) {
	t.Parallel()

	data := BuildJar(t, BundleHeaders("com.example.foo", "1.2.3", nil), map[string][]byte{
		"com/example/Foo.class": []byte("cafebabe"),
	})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() unexpected error: %v", err)
	}
	h, err := manifest.ReadArchive(zr)
	if err != nil {
		t.Fatalf("ReadArchive() unexpected error: %v", err)
	}
	if got := h.Value(manifest.BundleSymbolicName); got != "com.example.foo" {
		t.Errorf("Bundle-SymbolicName = %q", got)
	}
	if got := h.Value(manifest.BundleVersion); got != "1.2.3" {
		t.Errorf("Bundle-Version = %q", got)
	}
	if len(zr.File) != 2 {
		t.Errorf("archive has %d entries, want 2", len(zr.File))
	}
}

func TestBuildJar_NoManifest(t *testing.T) {
	t.Parallel()

	data := BuildJar(t, nil, nil)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() unexpected error: %v", err)
	}
	if _, err := manifest.ReadArchive(zr); !errors.Is(err, manifest.ErrNoManifest) {
		t.Errorf("ReadArchive() error = %v, want ErrNoManifest", err)
	}
}

func TestBundleHeaders(t *testing.T) {
	t.Parallel()

	h := BundleHeaders("a", "", manifest.Headers{manifest.ImportPackage: "p"})
	if h.Has(manifest.BundleVersion) {
		t.Errorf("empty version should leave Bundle-Version unset")
	}
	if h.Value(manifest.ImportPackage) != "p" {
		t.Errorf("extra headers not merged: %v", h)
	}
}

func TestFakeClock(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	if c.Reads() != 0 {
		t.Fatalf("Reads() = %d before any Now call", c.Reads())
	}
	start := c.Now()
	if !start.Equal(referenceTime) {
		t.Errorf("zero initial time = %v, want %v", start, referenceTime)
	}
	c.Advance(time.Minute)
	if got := c.Now().Sub(start); got != time.Minute {
		t.Errorf("Advance() moved clock by %v, want 1m", got)
	}
	if c.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", c.Reads())
	}
}
