// SPDX-License-Identifier: MPL-2.0

// Package indexer turns module archives into capabilities and requirements.
//
// BundleAnalyzer runs the fixed sequence of manifest extraction rules for one
// resource. Registry dispatches a resource to every registered Analyzer whose
// predicate matches its properties, in registration order, and Indexer runs
// a Registry over many resources concurrently.
//
// Per-call configuration (root URL, URL template) travels in a
// GenerationContext argument; nothing in this package keeps it between calls.
package indexer
