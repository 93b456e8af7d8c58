// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"fmt"
	"slices"

	"github.com/invowk/repoindex/pkg/capability"
	"github.com/invowk/repoindex/pkg/resource"
)

type (
	// Analyzer inspects one resource and appends what it finds to out.
	// Implementations must not retain res after returning.
	Analyzer interface {
		Analyze(ctx context.Context, res resource.Resource, gen GenerationContext, out *Result) error
	}

	// NamedAnalyzer is implemented by analyzers that report a stable name in
	// fault reports and logs.
	NamedAnalyzer interface {
		Analyzer
		Name() string
	}

	// AnalyzerFunc adapts a function to the Analyzer interface. Function
	// values are not comparable, so an AnalyzerFunc registered directly
	// cannot be unregistered; register a pointer to it instead.
	AnalyzerFunc func(ctx context.Context, res resource.Resource, gen GenerationContext, out *Result) error

	// Result holds the ordered output of one or more analyzers.
	Result struct {
		Capabilities []capability.Capability
		Requirements []capability.Requirement
	}
)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, res resource.Resource, gen GenerationContext, out *Result) error {
	return f(ctx, res, gen, out)
}

// AddCapability appends c.
func (r *Result) AddCapability(c capability.Capability) { r.Capabilities = append(r.Capabilities, c) }

// AddRequirement appends req.
func (r *Result) AddRequirement(req capability.Requirement) {
	r.Requirements = append(r.Requirements, req)
}

// Merge appends other's capabilities and requirements after r's own.
func (r *Result) Merge(other Result) {
	r.Capabilities = append(r.Capabilities, other.Capabilities...)
	r.Requirements = append(r.Requirements, other.Requirements...)
}

// Clone returns a copy whose slices do not alias r's.
func (r Result) Clone() Result {
	return Result{
		Capabilities: slices.Clone(r.Capabilities),
		Requirements: slices.Clone(r.Requirements),
	}
}

// analyzerName returns a name for a in fault reports.
func analyzerName(a Analyzer) string {
	if n, ok := a.(NamedAnalyzer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", a)
}
