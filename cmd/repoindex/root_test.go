// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/invowk/repoindex/internal/config"
	"github.com/invowk/repoindex/pkg/types"
)

type stubConfigProvider struct {
	cfg *config.Config
	err error
}

func (s *stubConfigProvider) Load(_ context.Context, _ config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return config.DefaultConfig(), nil
	}
	return s.cfg, nil
}

// runCLI executes the command tree with args and returns stdout, stderr and
// the error returned by cobra.
func runCLI(t *testing.T, deps Dependencies, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	if deps.Config == nil {
		deps.Config = &stubConfigProvider{}
	}
	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// exitCode returns the code carried by err, ExitSuccess for nil.
func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error %v is not an *ExitError", err)
	}
	return exitErr.Code
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "dev"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{Config: &stubConfigProvider{}}))
	for _, name := range []string{"index", "inspect", "config"} {
		found, _, err := root.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("subcommand %q not registered (found %v, err %v)", name, found, err)
		}
	}
	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s not registered", flag)
		}
	}
}

func TestNewApp_Defaults(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{})
	if app.Config == nil {
		t.Error("NewApp() left Config nil")
	}
	if app.stdout == nil || app.stderr == nil {
		t.Error("NewApp() left output streams nil")
	}
}

func TestConfigLoadFailure(t *testing.T) {
	t.Parallel()

	deps := Dependencies{Config: &stubConfigProvider{err: errors.New("boom")}}
	_, stderr, err := runCLI(t, deps, "index", "whatever.jar")
	if got := exitCode(t, err); got != types.ExitFailure {
		t.Errorf("exit code = %v, want %v", got, types.ExitFailure)
	}
	if !strings.Contains(stderr, "boom") {
		t.Errorf("stderr = %q, want it to contain the load error", stderr)
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitSuccess},
		{"plain error", errors.New("boom"), types.ExitFailure},
		{"usage", &ExitError{Code: types.ExitUsage}, types.ExitUsage},
		{"partial", newPartialError(1, 3), types.ExitPartial},
		{"wrapped", fmt.Errorf("run: %w", &ExitError{Code: types.ExitUsage}), types.ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeOf(tt.err); got != tt.want {
				t.Errorf("exitCodeOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitError_Error(t *testing.T) {
	t.Parallel()

	if got := newPartialError(2, 5).Error(); got != "2 of 5 resources failed" {
		t.Errorf("partial Error() = %q", got)
	}
	if got := (&ExitError{Code: types.ExitUsage}).Error(); got != "exit status 2" {
		t.Errorf("bare Error() = %q, want %q", got, "exit status 2")
	}
}
