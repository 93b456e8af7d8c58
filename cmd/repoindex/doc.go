// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for repoindex.
//
// The root command wires the index, inspect and config subcommands to an
// App holding the configuration provider, clock and output streams.
package cmd
