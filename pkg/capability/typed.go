// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invowk/repoindex/pkg/version"
)

// Attribute type tags accepted in "key:Type=value" parameters.
const (
	TypeString  = "String"
	TypeLong    = "Long"
	TypeDouble  = "Double"
	TypeVersion = "Version"
	TypeList    = "List"
)

var (
	// ErrInvalidAttributeType is returned for an unknown attribute type tag.
	ErrInvalidAttributeType = errors.New("invalid attribute type")

	// ErrInvalidAttributeValue is returned when a value does not parse as its declared type.
	ErrInvalidAttributeValue = errors.New("invalid attribute value")
)

// AttributeError describes a typed attribute that could not be converted.
type AttributeError struct {
	Key    string
	Value  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q=%q: %s", e.Key, e.Value, e.Reason)
}

// Unwrap returns the sentinel (and any parse error) for errors.Is() compatibility.
func (e *AttributeError) Unwrap() error { return e.Err }

// ParseTypedAttribute splits a raw "name:Type" key and converts value to the
// declared type. Keys without a type tag yield the value as a string.
// "List" alone means "List<String>".
func ParseTypedAttribute(key, value string) (string, any, error) {
	name, tag, ok := strings.Cut(key, ":")
	if !ok {
		return key, value, nil
	}
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)

	if elem, isList := listElementType(tag); isList {
		v, err := parseList(elem, value)
		if err != nil {
			return "", nil, withKey(err, key, value)
		}
		return name, v, nil
	}

	v, err := parseScalar(tag, value)
	if err != nil {
		return "", nil, withKey(err, key, value)
	}
	return name, v, nil
}

// AddTypedAttribute parses key/value with ParseTypedAttribute and stores the result.
func (b *Builder) AddTypedAttribute(key, value string) error {
	name, v, err := ParseTypedAttribute(key, value)
	if err != nil {
		return err
	}
	b.AddAttribute(name, v)
	return nil
}

func listElementType(tag string) (string, bool) {
	if tag == TypeList {
		return TypeString, true
	}
	rest, ok := strings.CutPrefix(tag, TypeList+"<")
	if !ok {
		return "", false
	}
	elem, ok := strings.CutSuffix(rest, ">")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(elem), true
}

func parseScalar(tag, value string) (any, error) {
	switch tag {
	case TypeString:
		return value, nil
	case TypeLong:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, &AttributeError{Reason: "not a Long", Err: errors.Join(ErrInvalidAttributeValue, err)}
		}
		return n, nil
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, &AttributeError{Reason: "not a Double", Err: errors.Join(ErrInvalidAttributeValue, err)}
		}
		return f, nil
	case TypeVersion:
		v, err := version.Parse(value)
		if err != nil {
			return nil, &AttributeError{Reason: "not a Version", Err: errors.Join(ErrInvalidAttributeValue, err)}
		}
		return v, nil
	default:
		return nil, &AttributeError{Reason: fmt.Sprintf("unknown type %q", tag), Err: ErrInvalidAttributeType}
	}
}

func parseList(elem, value string) (any, error) {
	parts := splitList(value)
	switch elem {
	case TypeString:
		return dedupe(parts), nil
	case TypeLong:
		return convertList[int64](elem, parts)
	case TypeDouble:
		return convertList[float64](elem, parts)
	case TypeVersion:
		return convertList[version.Version](elem, parts)
	default:
		return nil, &AttributeError{Reason: fmt.Sprintf("unknown list element type %q", elem), Err: ErrInvalidAttributeType}
	}
}

func convertList[T comparable](elem string, parts []string) ([]T, error) {
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := parseScalar(elem, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	return dedupe(out), nil
}

// splitList splits on commas not preceded by a backslash and unescapes "\,"
// and "\\". An empty value is an empty list.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	var (
		parts []string
		sb    strings.Builder
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\\' && i+1 < len(value):
			i++
			sb.WriteByte(value[i])
		case c == ',':
			parts = append(parts, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	return append(parts, strings.TrimSpace(sb.String()))
}

func withKey(err error, key, value string) error {
	var ae *AttributeError
	if errors.As(err, &ae) {
		ae.Key = key
		ae.Value = value
	}
	return err
}
