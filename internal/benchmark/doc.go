// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for PGO profile generation.
// They cover the hot paths of an indexing run:
//   - manifest header and version range parsing
//   - LDAP filter parsing and matching
//   - single bundle analysis
//   - concurrent batch indexing and document conversion
//   - CUE configuration loading
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
