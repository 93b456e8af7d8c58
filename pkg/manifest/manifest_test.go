// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	input := "Manifest-Version: 1.0\r\n" +
		"Bundle-SymbolicName: com.example.foo;singleton:=true\r\n" +
		"Export-Package: com.example.api;version=1.0.0,com.example.spi;ver\r\n" +
		" sion=2.0.0\r\n" +
		"Bundle-Version: 1.2.3\r\n" +
		"\r\n" +
		"Name: com/example/Foo.class\r\n" +
		"SHA-256-Digest: abc\r\n"

	h, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	tests := map[string]string{
		ManifestVersion:    "1.0",
		BundleSymbolicName: "com.example.foo;singleton:=true",
		ExportPackage:      "com.example.api;version=1.0.0,com.example.spi;version=2.0.0",
		BundleVersion:      "1.2.3",
	}
	for name, want := range tests {
		if got := h.Value(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if h.Has("Name") || h.Has("SHA-256-Digest") {
		t.Errorf("per-entry sections should not be read: %v", h)
	}
	if got := h.Value("bundle-symbolicname"); got != tests[BundleSymbolicName] {
		t.Errorf("case-insensitive lookup = %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"leading_continuation", " oops\n", 1},
		{"missing_colon", "Manifest-Version: 1.0\nGarbage\n", 2},
		{"space_in_name", "Bad Name: x\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Parse() error = %v, want ErrMalformed", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) || me.Line != tt.line {
				t.Errorf("MalformedError line = %v, want %d", err, tt.line)
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	long := "com.example.a;version=1.0.0," + strings.Repeat("com.example.long.package.name;version=\"[1.0,2.0)\",", 5) + "z"
	in := Headers{
		BundleSymbolicName: "com.example.foo",
		BundleVersion:      "1.2.3",
		ImportPackage:      long,
	}

	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	for i, line := range strings.Split(buf.String(), "\r\n") {
		if len(line) > maxLineWidth {
			t.Errorf("line %d exceeds %d bytes: %q", i+1, maxLineWidth, line)
		}
	}
	if !strings.HasPrefix(buf.String(), "Manifest-Version: 1.0\r\n") {
		t.Errorf("Manifest-Version should come first: %q", buf.String())
	}

	out, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	for name, want := range in {
		if got := out.Value(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestReadArchive(t *testing.T) {
	t.Parallel()

	build := func(withManifest bool) *zip.Reader {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		if withManifest {
			w, err := zw.Create(Path)
			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			if err := Write(w, Headers{BundleSymbolicName: "x"}); err != nil {
				t.Fatalf("Write() unexpected error: %v", err)
			}
		}
		if _, err := zw.Create("README.txt"); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("Close() unexpected error: %v", err)
		}
		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("NewReader() unexpected error: %v", err)
		}
		return zr
	}

	h, err := ReadArchive(build(true))
	if err != nil {
		t.Fatalf("ReadArchive() unexpected error: %v", err)
	}
	if h.Value(BundleSymbolicName) != "x" {
		t.Errorf("Bundle-SymbolicName = %q, want %q", h.Value(BundleSymbolicName), "x")
	}

	if _, err := ReadArchive(build(false)); !errors.Is(err, ErrNoManifest) {
		t.Errorf("ReadArchive() without manifest error = %v, want ErrNoManifest", err)
	}
}
