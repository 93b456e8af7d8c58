// SPDX-License-Identifier: MPL-2.0

// Package version implements the four-part module version model
// (major.minor.micro.qualifier) and the bracketed version ranges used
// in manifest headers such as Import-Package and Require-Bundle.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

// Empty is the zero version 0.0.0.
var Empty = Version{}

type (
	// Version is an ordered (major, minor, micro, qualifier) tuple.
	// The zero value is the empty version 0.0.0.
	Version struct {
		Major     int
		Minor     int
		Micro     int
		Qualifier string
	}

	// InvalidVersionError is returned when a version string cannot be parsed.
	InvalidVersionError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// New returns a version without a qualifier.
func New(major, minor, micro int) Version {
	return Version{Major: major, Minor: minor, Micro: micro}
}

// Parse parses "major[.minor[.micro[.qualifier]]]". Missing numeric
// components default to 0 and a missing qualifier to "".
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, &InvalidVersionError{Value: s, Reason: "empty string"}
	}

	parts := strings.SplitN(trimmed, ".", 4)
	var nums [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := parseComponent(parts[i])
		if err != nil {
			return Version{}, &InvalidVersionError{Value: s, Reason: err.Error()}
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1], Micro: nums[2]}
	if len(parts) == 4 {
		if !validQualifier(parts[3]) {
			return Version{}, &InvalidVersionError{Value: s, Reason: fmt.Sprintf("invalid qualifier %q", parts[3])}
		}
		v.Qualifier = parts[3]
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty numeric component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("numeric component %q out of range", s)
	}
	return n, nil
}

func validQualifier(q string) bool {
	if q == "" {
		return false
	}
	for _, r := range q {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// String formats the version as "major.minor.micro" with a ".qualifier"
// suffix when the qualifier is set.
func (v Version) String() string {
	base := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Micro)
	if v.Qualifier == "" {
		return base
	}
	return base + "." + v.Qualifier
}

// Compare returns -1, 0 or +1. Numeric components compare numerically and the
// qualifier lexicographically, so an empty qualifier sorts first.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	case v.Micro != o.Micro:
		return cmpInt(v.Micro, o.Micro)
	}
	return strings.Compare(v.Qualifier, o.Qualifier)
}

// Equal reports whether both versions are identical.
func (v Version) Equal(o Version) bool { return v == o }

// IsEmpty reports whether v is 0.0.0 without a qualifier.
func (v Version) IsEmpty() bool { return v == Empty }

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}
