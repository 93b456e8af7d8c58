// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// Win32 codes after which ReadDirectoryChangesW stops delivering events:
// ERROR_TOO_MANY_OPEN_FILES, ERROR_INVALID_HANDLE, ERROR_NOT_ENOUGH_MEMORY.
var fatalErrnos = []syscall.Errno{4, 6, 8}
