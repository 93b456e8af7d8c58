// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/invowk/repoindex/pkg/types"
)

// ExitError carries the process exit code out of a RunE handler. Execute
// translates it into os.Exit.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// newPartialError reports a run that wrote a document with failed resources.
func newPartialError(failed, total int) *ExitError {
	return &ExitError{
		Code: types.ExitPartial,
		Err:  fmt.Errorf("%d of %d resources failed", failed, total),
	}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCodeOf maps a command error to a process exit code: zero for nil, the
// carried code for an ExitError and ExitFailure for anything else.
func exitCodeOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitFailure
}
