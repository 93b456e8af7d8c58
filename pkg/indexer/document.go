// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"maps"
	"slices"

	"github.com/invowk/repoindex/pkg/capability"
)

type (
	// RepositoryDoc is the serializable form of a Repository.
	RepositoryDoc struct {
		Name      string        `json:"name" toml:"name"`
		Increment int64         `json:"increment" toml:"increment"`
		Resources []ResourceDoc `json:"resources" toml:"resource"`
	}

	// ResourceDoc is the serializable form of a ResourceIndex.
	ResourceDoc struct {
		Location     string      `json:"location" toml:"location"`
		Capabilities []ClauseDoc `json:"capabilities" toml:"capability"`
		Requirements []ClauseDoc `json:"requirements" toml:"requirement"`
		Error        string      `json:"error,omitempty" toml:"error,omitempty"`
	}

	// ClauseDoc is the serializable form of a capability or requirement.
	// Attributes and directives are sorted by name.
	ClauseDoc struct {
		Namespace  string         `json:"namespace" toml:"namespace"`
		Attributes []AttributeDoc `json:"attributes,omitempty" toml:"attribute,omitempty"`
		Directives []DirectiveDoc `json:"directives,omitempty" toml:"directive,omitempty"`
	}

	// AttributeDoc is one attribute. Type is empty for strings.
	AttributeDoc struct {
		Name  string `json:"name" toml:"name"`
		Type  string `json:"type,omitempty" toml:"type,omitempty"`
		Value string `json:"value" toml:"value"`
	}

	// DirectiveDoc is one directive.
	DirectiveDoc struct {
		Name  string `json:"name" toml:"name"`
		Value string `json:"value" toml:"value"`
	}

	clauseView interface {
		Namespace() string
		Attributes() map[string]any
		Directives() map[string]string
	}
)

// Document converts the repository into its serializable form.
func (r Repository) Document() RepositoryDoc {
	doc := RepositoryDoc{
		Name:      r.Name,
		Increment: r.Increment,
		Resources: make([]ResourceDoc, 0, len(r.Resources)),
	}
	for _, ri := range r.Resources {
		doc.Resources = append(doc.Resources, ri.Document())
	}
	return doc
}

// Document converts the resource index into its serializable form.
func (ri ResourceIndex) Document() ResourceDoc {
	doc := ResourceDoc{
		Location:     ri.Location,
		Capabilities: make([]ClauseDoc, 0, len(ri.Result.Capabilities)),
		Requirements: make([]ClauseDoc, 0, len(ri.Result.Requirements)),
	}
	for _, c := range ri.Result.Capabilities {
		doc.Capabilities = append(doc.Capabilities, clauseDoc(c))
	}
	for _, r := range ri.Result.Requirements {
		doc.Requirements = append(doc.Requirements, clauseDoc(r))
	}
	if ri.Err != nil {
		doc.Error = ri.Err.Error()
	}
	return doc
}

func clauseDoc(c clauseView) ClauseDoc {
	doc := ClauseDoc{Namespace: c.Namespace()}
	attrs := c.Attributes()
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		tag, text := capability.TypedValue(attrs[name])
		doc.Attributes = append(doc.Attributes, AttributeDoc{Name: name, Type: tag, Value: text})
	}
	dirs := c.Directives()
	for _, name := range slices.Sorted(maps.Keys(dirs)) {
		doc.Directives = append(doc.Directives, DirectiveDoc{Name: name, Value: dirs[name]})
	}
	return doc
}
