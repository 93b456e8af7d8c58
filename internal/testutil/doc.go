// SPDX-License-Identifier: MPL-2.0

// Package testutil holds fixtures shared by the package tests: in-memory
// bundle archives (BuildJar, WriteJar, BundleHeaders), a FakeClock for the
// repository increment, file helpers that fail fast (MustWriteFile,
// MustClose) and SetConfigDir for redirecting the user config directory.
package testutil
