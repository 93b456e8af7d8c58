// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/repoindex/internal/config"
	"github.com/invowk/repoindex/internal/issue"
	"github.com/invowk/repoindex/pkg/types"
)

// newConfigCommand creates the `repoindex config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage repoindex configuration",
		Long: `Manage repoindex configuration.

Configuration is read from the first of:
  - the file given with --config
  - <user config dir>/repoindex/config.cue
  - ./repoindex.cue

Environment variables named REPOINDEX_<SECTION>_<KEY> override file values,
e.g. REPOINDEX_INDEX_WORKERS=4.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfigPath(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(commandContext(cmd))
			if err != nil {
				return app.fail(cmd, err, types.ExitFailure, "dark")
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *App) showConfig(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(commandContext(cmd))
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, "dark")
	}
	w := cmd.OutOrStdout()

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	cfgPath, pathErr := config.ResolvePath(a.loadOptions())
	if pathErr == nil && cfgPath != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	printValue := func(indent, key string, value any) {
		text := fmt.Sprintf("%v", value)
		if text == "" {
			text = SubtitleStyle.Render("(not set)")
		} else {
			text = valueStyle.Render(text)
		}
		fmt.Fprintf(w, "%s%s: %s\n", indent, keyStyle.Render(key), text)
	}

	printValue("", "root_url", cfg.RootURL)
	printValue("", "url_template", cfg.URLTemplate)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("repository"))
	printValue("  ", "name", cfg.Repository.Name)
	printValue("  ", "increment", cfg.Repository.Increment)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("index"))
	printValue("  ", "workers", cfg.Index.Workers)
	printValue("  ", "continue_on_error", cfg.Index.ContinueOnError)
	printValue("  ", "strict_extensions", cfg.Index.StrictExtensions)
	printValue("  ", "format", cfg.Index.Format)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("analyzers"))
	printAnalyzers(w, cfg.Analyzers)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	printValue("  ", "color_scheme", cfg.UI.ColorScheme)
	printValue("  ", "verbose", cfg.UI.Verbose)

	return nil
}

func printAnalyzers(w io.Writer, analyzers []config.AnalyzerConfig) {
	if len(analyzers) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
		return
	}
	for i, a := range analyzers {
		line := "  - " + SuccessStyle.Render(a.DisplayName(i)) + " " + inspectNamespaceStyle.Render(a.Namespace)
		if a.Filter != "" {
			line += " " + VerboseStyle.Render(a.Filter)
		}
		fmt.Fprintln(w, line)
	}
}

func (a *App) initConfig(cmd *cobra.Command) error {
	cfgPath, created, err := config.CreateDefaultConfig("")
	if err != nil {
		return a.fail(cmd, issue.NewErrorContext().
			WithOperation("create configuration").
			WithIssue(issue.PermissionDeniedId).
			WithSuggestion("Check that the user config directory is writable").
			Wrap(err).
			BuildError(), types.ExitFailure, "dark")
	}

	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", WarningStyle.Render("!"), cfgPath)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func (a *App) showConfigPath(cmd *cobra.Command) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, "dark")
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(w, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	if resolved, resolveErr := config.ResolvePath(a.loadOptions()); resolveErr == nil && resolved != "" {
		fmt.Fprintf(w, "In use: %s\n", resolved)
	} else {
		fmt.Fprintln(w, "In use: (defaults)")
	}
	return nil
}
