// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"fmt"

	"github.com/invowk/repoindex/pkg/capability"
	"github.com/invowk/repoindex/pkg/resource"
)

// StaticAnalyzer emits one fixed capability for every resource it is
// dispatched to. It backs analyzers declared in configuration.
type StaticAnalyzer struct {
	name string
	cap  capability.Capability
}

// NewStaticAnalyzer builds the capability from namespace and raw attributes.
// Attribute keys may carry a type tag ("size:Long").
func NewStaticAnalyzer(name, namespace string, attributes map[string]string) (*StaticAnalyzer, error) {
	b := capability.NewBuilder().SetNamespace(namespace)
	for k, v := range attributes {
		if err := b.AddTypedAttribute(k, v); err != nil {
			return nil, fmt.Errorf("static analyzer %s: %w", name, err)
		}
	}
	c, err := b.BuildCapability()
	if err != nil {
		return nil, fmt.Errorf("static analyzer %s: %w", name, err)
	}
	return &StaticAnalyzer{name: name, cap: c}, nil
}

// Name implements NamedAnalyzer.
func (s *StaticAnalyzer) Name() string { return s.name }

// Capability returns the emitted capability.
func (s *StaticAnalyzer) Capability() capability.Capability { return s.cap }

// Analyze implements Analyzer.
func (s *StaticAnalyzer) Analyze(_ context.Context, _ resource.Resource, _ GenerationContext, out *Result) error {
	out.AddCapability(s.cap)
	return nil
}
