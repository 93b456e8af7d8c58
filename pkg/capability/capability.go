// SPDX-License-Identifier: MPL-2.0

// Package capability defines the immutable Capability and Requirement value
// types produced by manifest analysis, and the Builder that assembles them.
//
// Attribute values are one of string, int64, float64, version.Version, or an
// ordered, de-duplicated list of one of those ([]string, []int64, []float64,
// []version.Version). Accessors hand out copies, so built values can be
// shared between goroutines without synchronization.
package capability

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/invowk/repoindex/pkg/filter"
	"github.com/invowk/repoindex/pkg/version"
)

type (
	// Capability declares a facet a resource provides.
	Capability struct {
		clause
	}

	// Requirement declares a facet a resource needs, usually through a
	// "filter" directive evaluated against capabilities of the same namespace.
	Requirement struct {
		clause
	}

	clause struct {
		namespace  string
		attributes map[string]any
		directives map[string]string
	}
)

// Namespace returns the namespace.
func (c clause) Namespace() string { return c.namespace }

// Attributes returns a copy of the attribute map.
func (c clause) Attributes() map[string]any { return cloneAttributes(c.attributes) }

// Directives returns a copy of the directive map.
func (c clause) Directives() map[string]string { return maps.Clone(c.directives) }

// Attribute returns a copy of the attribute value for key.
func (c clause) Attribute(key string) (any, bool) {
	v, ok := c.attributes[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Directive returns the directive value for key.
func (c clause) Directive(key string) (string, bool) {
	v, ok := c.directives[key]
	return v, ok
}

// String renders the clause in manifest syntax with keys sorted, e.g.
//
//	osgi.wiring.package;osgi.wiring.package=com.example;version:Version=1.0.0
//
// The result is canonical: two values are Equal exactly when their strings match.
func (c clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.namespace)
	for _, k := range slices.Sorted(maps.Keys(c.attributes)) {
		sb.WriteByte(';')
		sb.WriteString(formatAttribute(k, c.attributes[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(c.directives)) {
		sb.WriteByte(';')
		sb.WriteString(k)
		sb.WriteString(":=")
		sb.WriteString(quote(c.directives[k]))
	}
	return sb.String()
}

// Equal reports whether both capabilities have the same namespace, attributes and directives.
func (c Capability) Equal(other Capability) bool { return c.String() == other.String() }

// Compare orders capabilities by namespace, then by canonical form.
func (c Capability) Compare(other Capability) int {
	return cmp.Or(cmp.Compare(c.namespace, other.namespace), cmp.Compare(c.String(), other.String()))
}

// Equal reports whether both requirements have the same namespace, attributes and directives.
func (r Requirement) Equal(other Requirement) bool { return r.String() == other.String() }

// Compare orders requirements by namespace, then by canonical form.
func (r Requirement) Compare(other Requirement) int {
	return cmp.Or(cmp.Compare(r.namespace, other.namespace), cmp.Compare(r.String(), other.String()))
}

// Filter parses the requirement's filter directive. It returns nil and no
// error when the requirement carries no filter.
func (r Requirement) Filter() (filter.Filter, error) {
	raw, ok := r.directives[DirectiveFilter]
	if !ok {
		return nil, nil
	}
	return filter.Parse(raw)
}

// Matches reports whether c satisfies the requirement: the namespaces must be
// equal and the filter, if any, must match c's attributes.
func (r Requirement) Matches(c Capability) (bool, error) {
	if r.namespace != c.namespace {
		return false, nil
	}
	f, err := r.Filter()
	if err != nil {
		return false, err
	}
	if f == nil {
		return true, nil
	}
	return f.Match(c.attributes), nil
}

func cloneAttributes(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return slices.Clone(val)
	case []int64:
		return slices.Clone(val)
	case []float64:
		return slices.Clone(val)
	case []version.Version:
		return slices.Clone(val)
	default:
		return v
	}
}

// TypedValue returns the type tag and text form of an attribute value. The
// tag is empty for plain strings; lists use "List<T>" and comma-join their
// elements with "\\," escaping embedded commas.
func TypedValue(v any) (string, string) {
	switch val := v.(type) {
	case string:
		return "", val
	case int64:
		return TypeLong, strconv.FormatInt(val, 10)
	case float64:
		return TypeDouble, formatDouble(val)
	case version.Version:
		return TypeVersion, val.String()
	case []string:
		return listTag(TypeString), joinList(val, escapeListElement)
	case []int64:
		return listTag(TypeLong), joinList(val, func(n int64) string { return strconv.FormatInt(n, 10) })
	case []float64:
		return listTag(TypeDouble), joinList(val, formatDouble)
	case []version.Version:
		return listTag(TypeVersion), joinList(val, version.Version.String)
	default:
		return "", fmt.Sprint(val)
	}
}

func formatAttribute(key string, v any) string {
	tag, text := TypedValue(v)
	if tag != "" {
		key += ":" + tag
	}
	return key + "=" + quote(text)
}

func listTag(elem string) string { return TypeList + "<" + elem + ">" }

func formatDouble(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func joinList[T any](values []T, format func(T) string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = format(v)
	}
	return strings.Join(parts, ",")
}

func escapeListElement(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), ",", `\,`)
}

// quote wraps s in double quotes when it contains characters the header
// grammar would otherwise interpret.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, ";,=\" \t") {
		return s
	}
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}
