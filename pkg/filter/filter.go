// SPDX-License-Identifier: MPL-2.0

// Package filter implements LDAP-style predicates over property maps, as used
// by requirement filter directives and analyzer registration.
//
//	(&(osgi.wiring.package=com.example)(version>=1.0.0)(!(version>=2.0.0)))
//
// Parse produces a tree of concrete node types; Match evaluates it by type
// switching on the property values, so no reflection is involved.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is the sentinel error wrapped by SyntaxError.
var ErrInvalidFilter = errors.New("invalid filter")

type (
	// Filter is a parsed predicate.
	Filter interface {
		// Match reports whether props satisfies the predicate.
		Match(props map[string]any) bool
		// String returns the canonical text form, which Parse accepts.
		String() string
	}

	// And matches when every operand matches.
	And struct{ Operands []Filter }

	// Or matches when at least one operand matches.
	Or struct{ Operands []Filter }

	// Not inverts its operand.
	Not struct{ Operand Filter }

	// Equal matches attr=value.
	Equal struct{ Attr, Value string }

	// Approx matches attr~=value, ignoring case and whitespace for strings.
	Approx struct{ Attr, Value string }

	// GreaterEq matches attr>=value.
	GreaterEq struct{ Attr, Value string }

	// LessEq matches attr<=value.
	LessEq struct{ Attr, Value string }

	// Present matches attr=* (the attribute exists).
	Present struct{ Attr string }

	// Substring matches attr=a*b*c. Parts holds the literal segments between
	// wildcards; an empty first or last part means the value is open on that side.
	Substring struct {
		Attr  string
		Parts []string
	}

	// SyntaxError describes a malformed filter string.
	SyntaxError struct {
		Filter string
		Offset int
		Reason string
	}
)

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid filter %q at offset %d: %s", e.Filter, e.Offset, e.Reason)
}

// Unwrap returns ErrInvalidFilter so callers can use errors.Is for programmatic detection.
func (e *SyntaxError) Unwrap() error { return ErrInvalidFilter }

// Escape escapes the characters that carry meaning inside a filter value.
func Escape(value string) string {
	if !strings.ContainsAny(value, `\*()`) {
		return value
	}
	var sb strings.Builder
	sb.Grow(len(value) + 4)
	for i := range len(value) {
		switch c := value[i]; c {
		case '\\', '*', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (f And) String() string { return composite('&', f.Operands) }
func (f Or) String() string  { return composite('|', f.Operands) }
func (f Not) String() string { return "(!" + f.Operand.String() + ")" }

func (f Equal) String() string     { return "(" + f.Attr + "=" + Escape(f.Value) + ")" }
func (f Approx) String() string    { return "(" + f.Attr + "~=" + Escape(f.Value) + ")" }
func (f GreaterEq) String() string { return "(" + f.Attr + ">=" + Escape(f.Value) + ")" }
func (f LessEq) String() string    { return "(" + f.Attr + "<=" + Escape(f.Value) + ")" }
func (f Present) String() string   { return "(" + f.Attr + "=*)" }

func (f Substring) String() string {
	escaped := make([]string, len(f.Parts))
	for i, p := range f.Parts {
		escaped[i] = Escape(p)
	}
	return "(" + f.Attr + "=" + strings.Join(escaped, "*") + ")"
}

func composite(op byte, operands []Filter) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteByte(op)
	for _, o := range operands {
		sb.WriteString(o.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Filter {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}
