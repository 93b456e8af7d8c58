// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "repoindex",
		Short: "Index OSGi bundles into a capability repository",
		Long: TitleStyle.Render("repoindex") + SubtitleStyle.Render(" - Index OSGi bundles into a capability repository") + `

repoindex reads the manifest of each bundle archive and describes it as
capabilities (what it provides) and requirements (what it needs), then writes
a repository document a resolver can consume.

` + SubtitleStyle.Render("Examples:") + `
  repoindex index bundles/*.jar                 Index bundles, JSON to stdout
  repoindex index -d repo -o index.json repo/*.jar
  repoindex index --format toml --fragment a.jar
  repoindex inspect foo.jar                     Show capabilities and requirements
  repoindex config show                         Show current configuration`,
		SilenceUsage: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is <user config dir>/repoindex/config.cue)")

	root.AddCommand(newIndexCommand(app))
	root.AddCommand(newInspectCommand(app))
	root.AddCommand(newConfigCommand(app))
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with the command's exit code.
// It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCodeOf(err)))
	}
}
