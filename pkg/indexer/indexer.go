// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/repoindex/pkg/resource"
)

// DefaultRepositoryName is used when no repository name is configured.
const DefaultRepositoryName = "Untitled"

// Error policies for batch indexing.
const (
	// FailFast aborts the batch on the first resource failure.
	FailFast ErrorPolicy = iota
	// ContinueOnError records the failure on the resource and keeps going.
	ContinueOnError
)

type (
	// ErrorPolicy decides how a batch reacts to a failing resource.
	ErrorPolicy int

	// Clock supplies the repository increment when none is configured.
	Clock interface {
		Now() time.Time
	}

	// Indexer analyzes batches of resources through a Registry.
	Indexer struct {
		registry *Registry
		workers  int
		policy   ErrorPolicy
		clock    Clock
		logger   *slog.Logger
	}

	// Option configures an Indexer.
	Option func(*Indexer)

	// ResourceIndex is the analysis outcome of one resource. Err is only set
	// under ContinueOnError.
	ResourceIndex struct {
		Location string
		Result   Result
		Err      error
	}

	// Repository is a complete index document.
	Repository struct {
		Name      string
		Increment int64
		Resources []ResourceIndex
	}

	realClock struct{}
)

func (realClock) Now() time.Time { return time.Now() }

// String returns the policy name.
func (p ErrorPolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case ContinueOnError:
		return "continue-on-error"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// WithWorkers bounds the number of resources analyzed concurrently.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(ix *Indexer) { ix.workers = n }
}

// WithErrorPolicy sets the batch error policy. The default is FailFast.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(ix *Indexer) { ix.policy = p }
}

// WithClock replaces the wall clock used for default increments.
func WithClock(c Clock) Option {
	return func(ix *Indexer) { ix.clock = c }
}

// WithLogger sets the logger for per-resource diagnostics. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// New returns an Indexer dispatching through registry, or through a fresh
// NewRegistry() when registry is nil.
func New(registry *Registry, opts ...Option) *Indexer {
	if registry == nil {
		registry = NewRegistry()
	}
	ix := &Indexer{registry: registry, clock: realClock{}}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.workers < 1 {
		ix.workers = runtime.GOMAXPROCS(0)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix
}

// Registry returns the registry the Indexer dispatches through.
func (ix *Indexer) Registry() *Registry { return ix.registry }

// Index analyzes resources concurrently. The returned slice is in input
// order. Under FailFast the first failure cancels the batch and is returned
// as a *ResourceError; under ContinueOnError failures are recorded per resource.
func (ix *Indexer) Index(ctx context.Context, resources []resource.Resource, gen GenerationContext) ([]ResourceIndex, error) {
	out := make([]ResourceIndex, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	for i, res := range resources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			result, err := ix.registry.Dispatch(gctx, res, gen)
			out[i] = ResourceIndex{Location: res.Location(), Result: result}
			if err == nil {
				ix.logger.DebugContext(gctx, "indexed resource",
					"resource", res.Location(),
					"capabilities", len(result.Capabilities),
					"requirements", len(result.Requirements))
				return nil
			}
			rerr := &ResourceError{Location: res.Location(), Err: err}
			if ix.policy == FailFast {
				return rerr
			}
			ix.logger.WarnContext(gctx, "skipping resource", "resource", res.Location(), "error", err)
			out[i].Err = rerr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Repository indexes resources into a named repository document. An empty
// name becomes DefaultRepositoryName and a zero increment the clock's
// current Unix milliseconds.
func (ix *Indexer) Repository(ctx context.Context, name string, increment int64, resources []resource.Resource, gen GenerationContext) (Repository, error) {
	indexed, err := ix.Index(ctx, resources, gen)
	if err != nil {
		return Repository{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultRepositoryName
	}
	if increment == 0 {
		increment = ix.clock.Now().UnixMilli()
	}
	return Repository{Name: name, Increment: increment, Resources: indexed}, nil
}

// Failed returns the entries that recorded an error.
func Failed(indexes []ResourceIndex) []ResourceIndex {
	var failed []ResourceIndex
	for _, ri := range indexes {
		if ri.Err != nil {
			failed = append(failed, ri)
		}
	}
	return failed
}
