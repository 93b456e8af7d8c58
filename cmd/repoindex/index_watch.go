// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/repoindex/internal/issue"
	"github.com/invowk/repoindex/internal/watch"
	"github.com/invowk/repoindex/pkg/indexer"
	"github.com/invowk/repoindex/pkg/types"
)

// watchAndReindex indexes once, then re-indexes whenever an archive under the
// root directory changes. It blocks until the command context is canceled
// (e.g., Ctrl+C). Failed runs are reported and the loop keeps going so the
// user can fix the archive and save again.
func (a *App) watchAndReindex(cmd *cobra.Command, settings indexSettings, logger *slog.Logger, run func(context.Context) (indexer.Repository, error)) error {
	reindex := func(ctx context.Context) {
		if _, err := run(ctx); err != nil {
			renderError(cmd.ErrOrStderr(), err, a.verbose, settings.style)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Watch mode: initial index of %s\n", CmdStyle.Render("→"), settings.output)
	reindex(commandContext(cmd))

	w, err := watch.New(watch.Config{
		BaseDir: watchDir(settings.gen.RootURL),
		Logger:  logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Detected %d change(s), re-indexing...\n", CmdStyle.Render("→"), len(changed))
			reindex(ctx)
			return nil
		},
	})
	if err != nil {
		return a.fail(cmd, fmt.Errorf("failed to start watcher: %w", err), types.ExitFailure, settings.style)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Watching %s for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"), w.BaseDir())
	if err := w.Run(commandContext(cmd)); err != nil {
		ctx := issue.NewErrorContext().WithOperation("watch for changes").WithResource(w.BaseDir()).Wrap(err)
		if errors.Is(err, watch.ErrWatchExhausted) {
			ctx.WithSuggestion("Raise the inotify watch limit (fs.inotify.max_user_watches) or watch a smaller root")
		}
		return a.fail(cmd, ctx.BuildError(), types.ExitFailure, settings.style)
	}
	return nil
}

// watchDir returns the local directory of a file root, or "" for the
// working directory.
func watchDir(root *url.URL) string {
	if root == nil || root.Scheme != "file" {
		return ""
	}
	p := root.Path
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}
