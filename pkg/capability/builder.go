// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"errors"
	"maps"
	"slices"

	"github.com/invowk/repoindex/pkg/version"
)

// ErrNamespaceNotSet is returned by the Build methods when SetNamespace was never called.
var ErrNamespaceNotSet = errors.New("capability namespace not set")

// Builder accumulates a namespace, attributes and directives. Setters are
// chainable and last write wins per key. A Builder may be reused after Build;
// built values never alias its maps.
type Builder struct {
	namespace  string
	attributes map[string]any
	directives map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		attributes: make(map[string]any),
		directives: make(map[string]string),
	}
}

// SetNamespace sets the namespace.
func (b *Builder) SetNamespace(ns string) *Builder {
	b.namespace = ns
	return b
}

// AddAttribute sets key to value. Integer and float values are widened to
// int64 and float64; list values are de-duplicated keeping first occurrence.
func (b *Builder) AddAttribute(key string, value any) *Builder {
	b.attributes[key] = normalizeValue(value)
	return b
}

// AddDirective sets directive key to value.
func (b *Builder) AddDirective(key, value string) *Builder {
	b.directives[key] = value
	return b
}

// BuildCapability returns an immutable snapshot of the accumulated state.
func (b *Builder) BuildCapability() (Capability, error) {
	c, err := b.snapshot()
	if err != nil {
		return Capability{}, err
	}
	return Capability{clause: c}, nil
}

// BuildRequirement returns an immutable snapshot of the accumulated state.
func (b *Builder) BuildRequirement() (Requirement, error) {
	c, err := b.snapshot()
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{clause: c}, nil
}

func (b *Builder) snapshot() (clause, error) {
	if b.namespace == "" {
		return clause{}, ErrNamespaceNotSet
	}
	return clause{
		namespace:  b.namespace,
		attributes: cloneAttributes(b.attributes),
		directives: maps.Clone(b.directives),
	}, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case []string:
		return dedupe(val)
	case []int64:
		return dedupe(val)
	case []float64:
		return dedupe(val)
	case []version.Version:
		return dedupe(val)
	default:
		return v
	}
}

func dedupe[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return slices.Clip(out)
}
