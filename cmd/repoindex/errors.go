// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/invowk/repoindex/internal/issue"
	"github.com/invowk/repoindex/pkg/capability"
	"github.com/invowk/repoindex/pkg/header"
	"github.com/invowk/repoindex/pkg/indexer"
	"github.com/invowk/repoindex/pkg/types"
	"github.com/invowk/repoindex/pkg/version"
)

// classifyError maps a failure to the catalog entry that explains it, or 0.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	var fault *indexer.ExtensionFault

	switch {
	case errors.Is(err, indexer.ErrNotABundle):
		return issue.NotABundleId
	case errors.Is(err, indexer.ErrMultipleFragmentHosts):
		return issue.MultipleFragmentHostsId
	case errors.Is(err, indexer.ErrOutsideRoot):
		return issue.OutsideRootId
	case errors.As(err, &fault):
		return issue.ExtensionFaultId
	case errors.Is(err, header.ErrSyntax),
		errors.Is(err, version.ErrInvalidVersion),
		errors.Is(err, version.ErrInvalidRange),
		errors.Is(err, capability.ErrInvalidAttributeType),
		errors.Is(err, capability.ErrInvalidAttributeValue):
		return issue.ManifestSyntaxErrorId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, fs.ErrNotExist):
		return issue.ResourceNotFoundId
	default:
		return 0
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderError writes the error and, when one applies, its catalog entry.
func renderError(w io.Writer, err error, verbose bool, style string) {
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(style)
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}

// fail renders err on the command's stderr and returns an ExitError so the
// process exits with code without cobra printing the error again.
func (a *App) fail(cmd *cobra.Command, err error, code types.ExitCode, style string) error {
	renderError(cmd.ErrOrStderr(), err, a.verbose, style)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: err}
}
