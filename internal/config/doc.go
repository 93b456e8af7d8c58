// SPDX-License-Identifier: MPL-2.0

// Package config handles repoindex configuration using Viper with CUE as the file format.
//
// Configuration is loaded from <user config dir>/repoindex/config.cue, then
// from repoindex.cue in the base directory, or from an explicit --config path.
// Files are validated against the embedded config_schema.cue before their
// values are merged over the defaults. REPOINDEX_* environment variables
// override individual keys (REPOINDEX_INDEX_WORKERS=8).
//
// Analyzer declarations are decoded straight from CUE so attribute keys keep
// their case and type tags.
package config
