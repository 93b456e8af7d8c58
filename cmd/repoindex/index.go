// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/invowk/repoindex/internal/config"
	"github.com/invowk/repoindex/internal/issue"
	"github.com/invowk/repoindex/pkg/indexer"
	"github.com/invowk/repoindex/pkg/resource"
	"github.com/invowk/repoindex/pkg/types"
)

type (
	// indexFlags holds the flag values of the index command.
	indexFlags struct {
		rootURL          string
		urlTemplate      string
		name             string
		increment        int64
		output           string
		format           string
		fragment         bool
		workers          int
		continueOnError  bool
		strictExtensions bool
		quiet            bool
		watch            bool
	}

	// indexSettings is the merged result of configuration and flags.
	indexSettings struct {
		gen       indexer.GenerationContext
		name      string
		increment int64
		output    string
		format    config.OutputFormat
		fragment  bool
		workers   int
		policy    indexer.ErrorPolicy
		strict    bool
		analyzers []config.AnalyzerConfig
		verbose   bool
		quiet     bool
		watch     bool
		style     string
	}

	// fragmentDoc wraps a bare resource list so TOML has a top-level table.
	fragmentDoc struct {
		Resources []indexer.ResourceDoc `toml:"resource"`
	}
)

func newIndexCommand(app *App) *cobra.Command {
	flags := &indexFlags{}
	cmd := &cobra.Command{
		Use:   "index [flags] <bundle.jar>...",
		Short: "Index bundle archives into a repository document",
		Long: `Index reads the manifest of every archive and writes a repository document
listing each resource with its capabilities and requirements. Arguments may
be doublestar patterns such as 'repo/**/*.jar'; quote them so the shell does
not expand them first.

Flags override the values of the configuration file.`,
		Example: `  repoindex index bundles/*.jar
  repoindex index -d ./repo -n "My Repo" -o repo/index.json repo/*.jar
  repoindex index -t 'https://cdn.example.com/%s/%v/%f' *.jar
  repoindex index 'repo/**/*.jar'
  repoindex index --watch -d ./repo -o repo/index.json 'repo/**/*.jar'
  repoindex index --fragment --format toml foo.jar`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runIndex(cmd, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.rootURL, "root-url", "d", "", "repository root directory or URL (default is the working directory)")
	cmd.Flags().StringVarP(&flags.urlTemplate, "url-template", "t", "", "content URL template with %s, %f, %v and %p placeholders")
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "repository name")
	cmd.Flags().Int64Var(&flags.increment, "increment", 0, "repository increment (default is the current time in milliseconds)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the document to a file instead of stdout")
	cmd.Flags().StringVar(&flags.format, "format", "", "output format: json or toml")
	cmd.Flags().BoolVar(&flags.fragment, "fragment", false, "write only the resource list, without the repository envelope")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "number of archives analyzed concurrently (default is one per CPU)")
	cmd.Flags().BoolVar(&flags.continueOnError, "continue-on-error", false, "record failing archives instead of aborting")
	cmd.Flags().BoolVar(&flags.strictExtensions, "strict-extensions", false, "fail an archive when a configured analyzer fails")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "only log errors")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-index whenever an archive under the root changes (requires --output)")

	return cmd
}

func (a *App) runIndex(cmd *cobra.Command, flags *indexFlags, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, "dark")
	}

	settings, err := a.resolveIndexSettings(cmd, cfg, flags)
	if err != nil {
		return a.fail(cmd, err, types.ExitUsage, issueStyle(cfg.UI.ColorScheme))
	}

	logger := a.logger(settings.verbose, settings.quiet)
	registry, err := buildRegistry(settings, logger)
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, settings.style)
	}

	ixOpts := []indexer.Option{
		indexer.WithWorkers(settings.workers),
		indexer.WithErrorPolicy(settings.policy),
		indexer.WithLogger(logger),
	}
	if a.Clock != nil {
		ixOpts = append(ixOpts, indexer.WithClock(a.Clock))
	}
	ix := indexer.New(registry, ixOpts...)

	run := func(ctx context.Context) (indexer.Repository, error) {
		paths, err := expandArgs(args)
		if err != nil {
			return indexer.Repository{}, err
		}
		resources, err := openResources(paths)
		if err != nil {
			return indexer.Repository{}, err
		}
		repo, err := ix.Repository(ctx, settings.name, settings.increment, resources, settings.gen)
		if err != nil {
			return indexer.Repository{}, indexFailure(err)
		}
		if err := writeIndex(cmd.OutOrStdout(), repo, settings); err != nil {
			return indexer.Repository{}, issue.NewErrorContext().
				WithOperation("write the index").
				WithResource(settings.output).
				WithIssue(issue.OutputWriteFailedId).
				Wrap(err).
				BuildError()
		}
		logger.Info("indexed resources", "total", len(repo.Resources), "failed", len(indexer.Failed(repo.Resources)))
		return repo, nil
	}

	if settings.watch {
		return a.watchAndReindex(cmd, settings, logger, run)
	}

	repo, err := run(ctx)
	if err != nil {
		return a.fail(cmd, err, types.ExitFailure, settings.style)
	}

	if failed := indexer.Failed(repo.Resources); len(failed) > 0 {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return newPartialError(len(failed), len(repo.Resources))
	}
	return nil
}

// buildRegistry creates the analyzer registry with the configured analyzers.
func buildRegistry(settings indexSettings, logger *slog.Logger) (*indexer.Registry, error) {
	opts := []indexer.RegistryOption{indexer.WithFaultObserver(indexer.NewSlogFaultObserver(logger))}
	if settings.strict {
		opts = append(opts, indexer.WithStrictExtensions())
	}
	registry := indexer.NewRegistry(opts...)
	for i, ac := range settings.analyzers {
		analyzer, predicate, err := ac.Build(i)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("register analyzer").
				WithResource(ac.DisplayName(i)).
				WithIssue(issue.InvalidAnalyzerConfigId).
				Wrap(err).
				BuildError()
		}
		registry.Register(analyzer, predicate)
		logger.Debug("registered analyzer", "analyzer", analyzer.Name(), "namespace", ac.Namespace)
	}
	return registry, nil
}

// expandArgs expands doublestar patterns such as "repo/**/*.jar" into the
// matching files. Plain paths pass through unchanged. A pattern matching
// nothing is an error.
func expandArgs(args []string) ([]string, error) {
	var (
		paths []string
		seen  = make(map[string]struct{})
	)
	add := func(p string) {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("expand pattern").
				WithResource(arg).
				WithSuggestion("Quote the pattern and check its brackets and braces").
				Wrap(err).
				BuildError()
		}
		if len(matches) == 0 {
			return nil, issue.NewErrorContext().
				WithOperation("expand pattern").
				WithResource(arg).
				WithIssue(issue.ResourceNotFoundId).
				Wrap(fmt.Errorf("no files match %q: %w", arg, fs.ErrNotExist)).
				BuildError()
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

// resolveIndexSettings layers changed flags over the loaded configuration.
func (a *App) resolveIndexSettings(cmd *cobra.Command, cfg *config.Config, flags *indexFlags) (indexSettings, error) {
	changed := cmd.Flags().Changed
	s := indexSettings{
		name:      cfg.Repository.Name,
		increment: cfg.Repository.Increment,
		output:    flags.output,
		format:    cfg.Index.Format,
		fragment:  flags.fragment,
		workers:   cfg.Index.Workers,
		strict:    cfg.Index.StrictExtensions,
		analyzers: cfg.Analyzers,
		verbose:   a.verbose || cfg.UI.Verbose,
		quiet:     flags.quiet,
		watch:     flags.watch,
		style:     issueStyle(cfg.UI.ColorScheme),
	}

	rootURL := cfg.RootURL
	if changed("root-url") {
		rootURL = flags.rootURL
	}
	s.gen.URLTemplate = cfg.URLTemplate
	if changed("url-template") {
		s.gen.URLTemplate = flags.urlTemplate
	}
	if changed("name") {
		s.name = flags.name
	}
	if changed("increment") {
		s.increment = flags.increment
	}
	if changed("format") {
		s.format = config.OutputFormat(flags.format)
	}
	if changed("workers") {
		s.workers = flags.workers
	}
	if changed("strict-extensions") {
		s.strict = flags.strictExtensions
	}
	continueOnError := cfg.Index.ContinueOnError
	if changed("continue-on-error") {
		continueOnError = flags.continueOnError
	}
	if continueOnError {
		s.policy = indexer.ContinueOnError
	}

	if valid, errs := s.format.IsValid(); !valid {
		return s, issue.NewErrorContext().
			WithOperation("select output format").
			WithSuggestion("Use --format json or --format toml").
			Wrap(errs[0]).
			BuildError()
	}
	if s.workers < 0 {
		return s, issue.NewErrorContext().
			WithOperation("configure workers").
			WithSuggestion("Use --workers 0 for one worker per CPU").
			Wrap(&config.InvalidWorkerCountError{Value: s.workers}).
			BuildError()
	}

	if s.watch && s.output == "" {
		return s, issue.NewErrorContext().
			WithOperation("start watch mode").
			WithSuggestion("Pass --output so each run rewrites the same file").
			Wrap(errors.New("--watch requires --output")).
			BuildError()
	}

	root, err := resolveRoot(rootURL)
	if err != nil {
		return s, issue.NewErrorContext().
			WithOperation("resolve repository root").
			WithResource(rootURL).
			WithSuggestion("Pass a directory path or an absolute URL such as file:///srv/repo/").
			Wrap(err).
			BuildError()
	}
	s.gen.RootURL = root
	return s, nil
}

// resolveRoot parses the configured root, defaulting to the working directory.
func resolveRoot(rootURL string) (*url.URL, error) {
	if rootURL != "" {
		return indexer.ParseRootURL(rootURL)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return indexer.RootURLFromPath(wd)
}

// openResources opens every archive path in argument order.
func openResources(paths []string) ([]resource.Resource, error) {
	resources := make([]resource.Resource, 0, len(paths))
	for _, p := range paths {
		f, err := resource.OpenFile(p)
		if err != nil {
			id := issue.ResourceNotFoundId
			if errors.Is(err, fs.ErrPermission) {
				id = issue.PermissionDeniedId
			}
			return nil, issue.NewErrorContext().
				WithOperation("open resource").
				WithResource(p).
				WithIssue(id).
				Wrap(err).
				BuildError()
		}
		resources = append(resources, f)
	}
	return resources, nil
}

// indexFailure attaches remediation hints to a fail-fast batch error.
func indexFailure(err error) error {
	ctx := issue.NewErrorContext().WithOperation("index resources").Wrap(err)
	var rerr *indexer.ResourceError
	if errors.As(err, &rerr) {
		ctx.WithResource(rerr.Location)
	}
	switch {
	case errors.Is(err, indexer.ErrNotABundle):
		ctx.WithSuggestion("Use --continue-on-error to skip archives that are not bundles")
	case errors.Is(err, indexer.ErrOutsideRoot):
		ctx.WithSuggestion("Pass a --root-url that contains every archive")
	case errors.Is(err, context.Canceled):
		ctx.WithSuggestion("The run was interrupted; no document was written")
	}
	return ctx.BuildError()
}

// writeIndex serializes the repository to the output file or to stdout.
func writeIndex(stdout io.Writer, repo indexer.Repository, s indexSettings) (err error) {
	w := stdout
	if s.output != "" {
		f, createErr := os.Create(s.output)
		if createErr != nil {
			return createErr
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		w = f
	}
	return encodeIndex(w, repo.Document(), s.format, s.fragment)
}

// encodeIndex writes doc in format. In fragment mode only the resources are written.
func encodeIndex(w io.Writer, doc indexer.RepositoryDoc, format config.OutputFormat, fragment bool) error {
	var v any = doc
	if fragment {
		v = doc.Resources
	}

	switch format {
	case config.OutputFormatTOML:
		if fragment {
			v = fragmentDoc{Resources: doc.Resources}
		}
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
