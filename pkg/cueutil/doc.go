// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles an embedded CUE schema, unifies user data with one
// of its definitions and decodes the result into a Go value.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[Config](schema, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
//
// Errors carry the file name and the offending field in JSON-path notation
// ("analyzers[0].namespace").
package cueutil
