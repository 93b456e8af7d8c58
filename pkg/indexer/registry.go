// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/invowk/repoindex/pkg/filter"
	"github.com/invowk/repoindex/pkg/resource"
)

// DefaultPredicate selects the resources handled by the built-in BundleAnalyzer.
const DefaultPredicate = "(name=*.jar)"

type (
	// Registry dispatches resources to analyzers in registration order.
	// It is safe for concurrent use; Dispatch iterates over a snapshot, so
	// concurrent Register/Unregister calls affect only later dispatches.
	Registry struct {
		mu       sync.RWMutex
		entries  []registration
		observer FaultObserver
		strict   bool
	}

	// RegistryOption configures a Registry.
	RegistryOption func(*Registry)

	registration struct {
		analyzer  Analyzer
		predicate filter.Filter
		// hard analyzers propagate their errors instead of being isolated.
		hard bool
	}
)

// WithFaultObserver sets the collaborator notified of extension faults.
// The default reports them through slog.Default().
func WithFaultObserver(o FaultObserver) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

// WithStrictExtensions makes extension faults fail the dispatch instead of
// being reported and discarded.
func WithStrictExtensions() RegistryOption {
	return func(r *Registry) { r.strict = true }
}

// NewRegistry returns a Registry holding the default BundleAnalyzer, matched
// against DefaultPredicate.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{observer: NewSlogFaultObserver(nil)}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = append(r.entries, registration{
		analyzer:  NewBundleAnalyzer(),
		predicate: filter.MustParse(DefaultPredicate),
		hard:      true,
	})
	return r
}

// Register appends a to the dispatch order. A nil predicate matches every resource.
func (r *Registry) Register(a Analyzer, predicate filter.Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registration{analyzer: a, predicate: predicate})
}

// Unregister removes the first registration of the same analyzer value with
// an equal predicate (compared by canonical string form) and reports whether
// one was found. Analyzers of non-comparable types never match.
func (r *Registry) Unregister(a Analyzer, predicate filter.Filter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.hard || !sameAnalyzer(e.analyzer, a) || !samePredicate(e.predicate, predicate) {
			continue
		}
		r.entries = slices.Delete(r.entries, i, i+1)
		return true
	}
	return false
}

// Len returns the number of registrations, including the default analyzer.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispatch runs every analyzer whose predicate matches res and merges their
// output in registration order. An error from the default analyzer fails the
// dispatch. Extension analyzers write into a private Result that is merged
// only on success; their faults go to the FaultObserver.
func (r *Registry) Dispatch(ctx context.Context, res resource.Resource, gen GenerationContext) (Result, error) {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	props := res.Properties()
	var merged Result
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if e.predicate != nil && !e.predicate.Match(props) {
			continue
		}

		var out Result
		if e.hard {
			if err := e.analyzer.Analyze(ctx, res, gen, &out); err != nil {
				return Result{}, err
			}
			merged.Merge(out)
			continue
		}

		if fault := runExtension(ctx, e.analyzer, res, gen, &out); fault != nil {
			if r.strict {
				return Result{}, fault
			}
			r.observer.ObserveFault(ctx, fault)
			continue
		}
		merged.Merge(out)
	}
	return merged, nil
}

func runExtension(ctx context.Context, a Analyzer, res resource.Resource, gen GenerationContext, out *Result) (fault *ExtensionFault) {
	defer func() {
		if p := recover(); p != nil {
			fault = &ExtensionFault{
				Resource: res.Location(),
				Analyzer: analyzerName(a),
				Err:      fmt.Errorf("panic: %v", p),
				Panic:    p,
			}
		}
	}()
	if err := a.Analyze(ctx, res, gen, out); err != nil {
		return &ExtensionFault{Resource: res.Location(), Analyzer: analyzerName(a), Err: err}
	}
	return nil
}

func sameAnalyzer(a, b Analyzer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

func samePredicate(a, b filter.Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
