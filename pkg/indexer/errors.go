// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotABundle is returned when a resource has no manifest or no
	// Bundle-SymbolicName header. It aborts analysis of the resource.
	ErrNotABundle = errors.New("resource is not a bundle")

	// ErrMultipleFragmentHosts is returned when Fragment-Host names more than one host.
	ErrMultipleFragmentHosts = errors.New("fragment host header cannot contain multiple entries")

	// ErrOutsideRoot is returned when a resource lies outside the declared root URL.
	ErrOutsideRoot = errors.New("cannot index a resource outside the declared root")
)

type (
	// RuleError reports the extraction rule that failed.
	RuleError struct {
		Rule string
		Err  error
	}

	// OutsideRootError names the resource directory and the root it escaped.
	OutsideRootError struct {
		Dir  string
		Root string
	}

	// ExtensionFault records an extension analyzer failure. Panics are
	// recovered and carried in Panic with Err describing them.
	ExtensionFault struct {
		Resource string
		Analyzer string
		Err      error
		Panic    any
	}
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s rule: %v", e.Rule, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *OutsideRootError) Error() string {
	return fmt.Sprintf("%s is not under root %s: %v", e.Dir, e.Root, ErrOutsideRoot)
}

// Unwrap returns ErrOutsideRoot for errors.Is() compatibility.
func (e *OutsideRootError) Unwrap() error { return ErrOutsideRoot }

// Error implements the error interface.
func (e *ExtensionFault) Error() string {
	return fmt.Sprintf("analyzer %s failed on %s: %v", e.Analyzer, e.Resource, e.Err)
}

// Unwrap returns the analyzer error.
func (e *ExtensionFault) Unwrap() error { return e.Err }

// ResourceError attributes an analysis failure to the resource location.
type ResourceError struct {
	Location string
	Err      error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Location, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error { return e.Err }
