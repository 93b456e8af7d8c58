// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is the sentinel error wrapped by InvalidRangeError.
var ErrInvalidRange = errors.New("invalid version range")

type (
	// Range is a floor/ceiling pair with independent bracket semantics.
	// A nil Ceiling means "Floor and above".
	Range struct {
		Floor            Version
		Ceiling          *Version
		FloorInclusive   bool
		CeilingInclusive bool
	}

	// InvalidRangeError is returned when a range string is malformed or
	// describes an empty set of versions.
	InvalidRangeError struct {
		Value  string
		Reason string
		Err    error
	}
)

// Error implements the error interface.
func (e *InvalidRangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid version range %q: %s: %v", e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid version range %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidRange and the underlying version error, if any.
func (e *InvalidRangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidRange, e.Err}
	}
	return []error{ErrInvalidRange}
}

// AtLeast returns the unbounded range [v, ∞).
func AtLeast(v Version) Range {
	return Range{Floor: v, FloorInclusive: true}
}

// Between returns a bounded range with the given bracket semantics.
// It fails when the range would be empty.
func Between(floor Version, floorInclusive bool, ceiling Version, ceilingInclusive bool) (Range, error) {
	r := Range{
		Floor:            floor,
		Ceiling:          &ceiling,
		FloorInclusive:   floorInclusive,
		CeilingInclusive: ceilingInclusive,
	}
	if err := r.validate(); err != nil {
		return Range{}, &InvalidRangeError{Value: r.String(), Reason: err.Error()}
	}
	return r, nil
}

// ParseRange parses either a bare version (an unbounded range with an
// inclusive floor) or the bracketed form "[floor,ceiling)".
func ParseRange(s string) (Range, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Range{}, &InvalidRangeError{Value: s, Reason: "empty string"}
	}

	first := trimmed[0]
	if first != '[' && first != '(' {
		if strings.ContainsAny(trimmed, "[](),") {
			return Range{}, &InvalidRangeError{Value: s, Reason: "unbalanced brackets"}
		}
		v, err := Parse(trimmed)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Reason: "bad floor", Err: err}
		}
		return AtLeast(v), nil
	}

	last := trimmed[len(trimmed)-1]
	if last != ']' && last != ')' {
		return Range{}, &InvalidRangeError{Value: s, Reason: "unbalanced brackets"}
	}

	body := trimmed[1 : len(trimmed)-1]
	floorStr, ceilingStr, ok := strings.Cut(body, ",")
	if !ok {
		return Range{}, &InvalidRangeError{Value: s, Reason: "missing comma between floor and ceiling"}
	}
	if strings.ContainsAny(ceilingStr, "[](),") || strings.ContainsAny(floorStr, "[]()") {
		return Range{}, &InvalidRangeError{Value: s, Reason: "unbalanced brackets"}
	}

	floor, err := Parse(floorStr)
	if err != nil {
		return Range{}, &InvalidRangeError{Value: s, Reason: "bad floor", Err: err}
	}
	ceiling, err := Parse(ceilingStr)
	if err != nil {
		return Range{}, &InvalidRangeError{Value: s, Reason: "bad ceiling", Err: err}
	}

	r := Range{
		Floor:            floor,
		Ceiling:          &ceiling,
		FloorInclusive:   first == '[',
		CeilingInclusive: last == ']',
	}
	if err := r.validate(); err != nil {
		return Range{}, &InvalidRangeError{Value: s, Reason: err.Error()}
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) validate() error {
	if r.Ceiling == nil {
		return nil
	}
	switch c := r.Floor.Compare(*r.Ceiling); {
	case c > 0:
		return errors.New("floor is greater than ceiling")
	case c == 0 && !(r.FloorInclusive && r.CeilingInclusive):
		return errors.New("range is empty")
	}
	return nil
}

// IsBounded reports whether the range has a ceiling.
func (r Range) IsBounded() bool { return r.Ceiling != nil }

// Includes reports whether v satisfies the range.
func (r Range) Includes(v Version) bool {
	if c := v.Compare(r.Floor); c < 0 || (c == 0 && !r.FloorInclusive) {
		return false
	}
	if r.Ceiling == nil {
		return true
	}
	c := v.Compare(*r.Ceiling)
	return c < 0 || (c == 0 && r.CeilingInclusive)
}

// String returns the bare floor for unbounded ranges and the bracketed form otherwise.
func (r Range) String() string {
	if r.Ceiling == nil {
		return r.Floor.String()
	}
	var sb strings.Builder
	if r.FloorInclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	sb.WriteString(r.Floor.String())
	sb.WriteByte(',')
	sb.WriteString(r.Ceiling.String())
	if r.CeilingInclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

// FilterTerms returns the filter conjuncts that restrict attr to this range,
// without an enclosing "(&...)". Exclusive bounds are expressed by negating
// the opposite inclusive comparison since the filter syntax has no strict operators.
func (r Range) FilterTerms(attr string) string {
	var sb strings.Builder
	if r.Ceiling == nil {
		fmt.Fprintf(&sb, "(%s>=%s)", attr, r.Floor)
		return sb.String()
	}
	if r.FloorInclusive {
		fmt.Fprintf(&sb, "(%s>=%s)", attr, r.Floor)
	} else {
		fmt.Fprintf(&sb, "(!(%s<=%s))", attr, r.Floor)
	}
	if r.CeilingInclusive {
		fmt.Fprintf(&sb, "(%s<=%s)", attr, r.Ceiling)
	} else {
		fmt.Fprintf(&sb, "(!(%s>=%s))", attr, r.Ceiling)
	}
	return sb.String()
}

// ToFilter returns a complete filter expression matching attr against the range.
func (r Range) ToFilter(attr string) string {
	if r.Ceiling == nil {
		return r.FilterTerms(attr)
	}
	return "(&" + r.FilterTerms(attr) + ")"
}
