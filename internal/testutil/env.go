// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetConfigDir points os.UserConfigDir at dir until the test ends. It uses
// t.Setenv, so the calling test must not be parallel.
//
// The variable set depends on the platform: APPDATA on Windows, HOME on
// Darwin (the config dir is $HOME/Library/Application Support) and
// XDG_CONFIG_HOME elsewhere.
func SetConfigDir(t testing.TB, dir string) {
	t.Helper()
	t.Setenv(configDirEnv(), dir)
}

func configDirEnv() string {
	switch runtime.GOOS {
	case "windows":
		return "APPDATA"
	case "darwin", "ios":
		return "HOME"
	default:
		return "XDG_CONFIG_HOME"
	}
}
