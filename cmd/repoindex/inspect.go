// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/invowk/repoindex/pkg/indexer"
	"github.com/invowk/repoindex/pkg/types"
)

func newInspectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bundle.jar>",
		Short: "Show the capabilities and requirements of one bundle",
		Long: `Inspect analyzes a single archive with the bundle analyzer and the
configured analyzers and prints its capabilities and requirements.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runInspect(cmd, args[0])
		},
	}
}

func (a *App) runInspect(cmd *cobra.Command, path string) error {
	ctx := commandContext(cmd)

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, "dark")
	}
	style := issueStyle(cfg.UI.ColorScheme)

	resources, err := openResources([]string{path})
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, style)
	}

	logger := a.logger(a.verbose || cfg.UI.Verbose, false)
	registry := indexer.NewRegistry(indexer.WithFaultObserver(indexer.NewSlogFaultObserver(logger)))
	for i, ac := range cfg.Analyzers {
		analyzer, predicate, buildErr := ac.Build(i)
		if buildErr != nil {
			return a.fail(cmd, buildErr, types.ExitFailure, style)
		}
		registry.Register(analyzer, predicate)
	}

	indexed, err := indexer.New(registry, indexer.WithWorkers(1), indexer.WithLogger(logger)).
		Index(ctx, resources, indexer.GenerationContext{})
	if err != nil {
		return a.fail(cmd, indexFailure(err), types.ExitFailure, style)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderInspection(indexed[0].Document()))
	return nil
}

// renderInspection formats a resource as titled sections of clauses.
func renderInspection(doc indexer.ResourceDoc) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(doc.Location))
	sb.WriteString("\n\n")
	sb.WriteString(renderClauses("Capabilities", SuccessStyle, doc.Capabilities))
	sb.WriteString("\n")
	sb.WriteString(renderClauses("Requirements", WarningStyle, doc.Requirements))
	return sb.String()
}

func renderClauses(title string, titleStyle lipgloss.Style, clauses []indexer.ClauseDoc) string {
	var body strings.Builder
	body.WriteString(titleStyle.Bold(true).Render(fmt.Sprintf("%s (%d)", title, len(clauses))))
	if len(clauses) == 0 {
		body.WriteString("\n" + SubtitleStyle.Render("  none"))
	}
	for _, c := range clauses {
		body.WriteString("\n" + inspectNamespaceStyle.Render(c.Namespace))
		for _, attr := range c.Attributes {
			name := attr.Name
			if attr.Type != "" {
				name += ":" + attr.Type
			}
			fmt.Fprintf(&body, "\n  %s = %s", CmdStyle.Render(name), VerboseStyle.Render(attr.Value))
		}
		for _, dir := range c.Directives {
			fmt.Fprintf(&body, "\n  %s := %s", CmdStyle.Render(dir.Name), VerboseStyle.Render(dir.Value))
		}
	}
	return inspectSectionStyle.Render(body.String())
}
