// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Analyzer: {
	namespace:   string & != ""
	filter?:     string
	attributes?: [string]: string
}

#Config: {
	root_url?: string
	workers?:  int & >=0
	format?:   "json" | "toml"
	analyzers?: [...#Analyzer]
}
`

type (
	testAnalyzer struct {
		Namespace  string            `json:"namespace"`
		Filter     string            `json:"filter,omitempty"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}

	testConfig struct {
		RootURL   string         `json:"root_url,omitempty"`
		Workers   int            `json:"workers,omitempty"`
		Format    string         `json:"format,omitempty"`
		Analyzers []testAnalyzer `json:"analyzers,omitempty"`
	}
)

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	data := []byte(`
root_url: "https://repo.example/"
workers:  4
format:   "toml"
analyzers: [{
	namespace: "com.example.tag"
	filter:    "(name=*.jar)"
	attributes: {team: "core"}
}]
`)
	res, err := ParseAndDecode[testConfig]([]byte(testSchema), data, "#Config")
	if err != nil {
		t.Fatalf("ParseAndDecode() unexpected error: %v", err)
	}
	cfg := res.Value
	if cfg.RootURL != "https://repo.example/" || cfg.Workers != 4 || cfg.Format != "toml" {
		t.Errorf("decoded config = %+v", cfg)
	}
	if len(cfg.Analyzers) != 1 || cfg.Analyzers[0].Attributes["team"] != "core" {
		t.Errorf("decoded analyzers = %+v", cfg.Analyzers)
	}
	if res.Unified.Err() != nil {
		t.Errorf("Unified.Err() = %v", res.Unified.Err())
	}
}

func TestParseAndDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		opts     []Option
		contains string
	}{
		{
			name:     "wrong type",
			data:     `workers: "four"`,
			contains: "workers",
		},
		{
			name:     "disallowed enum value",
			data:     `format: "xml"`,
			contains: "format",
		},
		{
			name:     "field path in list",
			data:     `analyzers: [{namespace: ""}]`,
			contains: "analyzers[0].namespace",
		},
		{
			name:     "unknown field",
			data:     `colour: "blue"`,
			contains: "colour",
		},
		{
			name:     "syntax error",
			data:     `workers: {`,
			contains: "config.cue",
		},
		{
			name:     "oversized input",
			data:     strings.Repeat("a", 200),
			opts:     []Option{WithMaxFileSize(100)},
			contains: "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]Option{WithFilename("config.cue")}, tt.opts...)
			_, err := ParseAndDecode[testConfig]([]byte(testSchema), []byte(tt.data), "#Config", opts...)
			if err == nil {
				t.Fatal("ParseAndDecode() expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("ParseAndDecode() error = %q, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestParseAndDecode_NonConcrete(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecode[testConfig]([]byte(testSchema), []byte(`{}`), "#Config", WithConcrete(false))
	if err != nil {
		t.Fatalf("ParseAndDecode() unexpected error: %v", err)
	}
	if res.Value.Workers != 0 || len(res.Value.Analyzers) != 0 {
		t.Errorf("empty input decoded to %+v", res.Value)
	}
}

func TestParseAndDecode_MissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[testConfig]([]byte(testSchema), []byte(`{}`), "#Missing")
	if err == nil || !strings.Contains(err.Error(), "#Missing") {
		t.Errorf("ParseAndDecode() error = %v, want missing definition error", err)
	}
}
