// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/repoindex/internal/config"
	"github.com/invowk/repoindex/internal/testutil"
)

// Not parallel: these tests set the package-level config directory override.

func TestConfigInitAndPath(t *testing.T) {
	dir := t.TempDir()
	config.SetConfigDirOverride(dir)
	t.Cleanup(config.Reset)

	deps := Dependencies{Config: config.NewProvider()}

	stdout, _, err := runCLI(t, deps, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	cfgPath := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	if !strings.Contains(stdout, "Created default configuration") {
		t.Errorf("config init output = %q", stdout)
	}
	if _, statErr := os.Stat(cfgPath); statErr != nil {
		t.Fatalf("config file not created: %v", statErr)
	}

	stdout, _, err = runCLI(t, deps, "config", "init")
	if err != nil {
		t.Fatalf("second config init failed: %v", err)
	}
	if !strings.Contains(stdout, "already exists") {
		t.Errorf("second config init output = %q, want it to keep the existing file", stdout)
	}

	stdout, _, err = runCLI(t, deps, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(stdout, dir) || !strings.Contains(stdout, "In use: "+cfgPath) {
		t.Errorf("config path output = %q, want directory %s and file in use", stdout, dir)
	}
}

func TestConfigShowAndDump(t *testing.T) {
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	cfgFile := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, cfgFile, []byte(`
repository: name: "Nightly"
index: format: "toml"
analyzers: [{
	name:      "team"
	namespace: "com.example.team"
	attributes: team: "core"
}]
`))

	deps := Dependencies{Config: config.NewProvider()}

	stdout, stderr, err := runCLI(t, deps, "config", "show", "--config", cfgFile)
	if err != nil {
		t.Fatalf("config show failed: %v\nstderr: %s", err, stderr)
	}
	for _, want := range []string{cfgFile, "Nightly", "toml", "team", "com.example.team"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, deps, "config", "dump", "--config", cfgFile)
	if err != nil {
		t.Fatalf("config dump failed: %v", err)
	}
	if !strings.Contains(stdout, `name: "Nightly"`) || !strings.Contains(stdout, `namespace: "com.example.team"`) {
		t.Errorf("config dump output = %q", stdout)
	}
}

func TestConfigShow_Defaults(t *testing.T) {
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	stdout, _, err := runCLI(t, Dependencies{Config: config.NewProvider()}, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(stdout, "(using defaults)") || !strings.Contains(stdout, "(none configured)") {
		t.Errorf("config show output = %q, want default markers", stdout)
	}
}

func TestConfigShow_MissingExplicitFile(t *testing.T) {
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, stderr, err := runCLI(t, Dependencies{Config: config.NewProvider()}, "config", "show", "--config", missing)
	if err == nil {
		t.Fatal("config show with a missing file succeeded")
	}
	if !strings.Contains(stderr, "config file not found") {
		t.Errorf("stderr = %q, want the missing file reported", stderr)
	}
}
