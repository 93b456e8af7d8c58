// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestIsFatalFsnotifyError(t *testing.T) {
	t.Parallel()

	for _, errno := range fatalErrnos {
		t.Run(errno.Error(), func(t *testing.T) {
			t.Parallel()
			if !isFatalFsnotifyError(errno) {
				t.Errorf("%v should be fatal", errno)
			}
			if !isFatalFsnotifyError(fmt.Errorf("fsnotify: %w", errno)) {
				t.Errorf("wrapped %v should be fatal", errno)
			}
		})
	}

	for _, err := range []error{
		errors.New("transient"),
		os.ErrPermission,
		syscall.Errno(2),
		nil,
	} {
		if isFatalFsnotifyError(err) {
			t.Errorf("%v should not be fatal", err)
		}
	}
}
