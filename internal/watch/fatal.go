// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"slices"
	"syscall"
)

// ErrWatchExhausted is wrapped by the error Run returns when the platform
// notification backend runs out of watches, handles or memory.
var ErrWatchExhausted = errors.New("watch: notification resources exhausted")

// isFatalFsnotifyError reports whether err carries one of the platform's
// fatalErrnos.
func isFatalFsnotifyError(err error) bool {
	return slices.ContainsFunc(fatalErrnos, func(errno syscall.Errno) bool {
		return errors.Is(err, errno)
	})
}
