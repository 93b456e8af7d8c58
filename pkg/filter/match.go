// SPDX-License-Identifier: MPL-2.0

package filter

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/invowk/repoindex/pkg/version"
)

type op int

const (
	opEqual op = iota
	opApprox
	opGreaterEq
	opLessEq
)

// Match implements Filter.
func (f And) Match(props map[string]any) bool {
	for _, o := range f.Operands {
		if !o.Match(props) {
			return false
		}
	}
	return true
}

// Match implements Filter.
func (f Or) Match(props map[string]any) bool {
	for _, o := range f.Operands {
		if o.Match(props) {
			return true
		}
	}
	return false
}

// Match implements Filter.
func (f Not) Match(props map[string]any) bool { return !f.Operand.Match(props) }

// Match implements Filter.
func (f Equal) Match(props map[string]any) bool { return compareProp(props, f.Attr, opEqual, f.Value) }

// Match implements Filter.
func (f Approx) Match(props map[string]any) bool {
	return compareProp(props, f.Attr, opApprox, f.Value)
}

// Match implements Filter.
func (f GreaterEq) Match(props map[string]any) bool {
	return compareProp(props, f.Attr, opGreaterEq, f.Value)
}

// Match implements Filter.
func (f LessEq) Match(props map[string]any) bool {
	return compareProp(props, f.Attr, opLessEq, f.Value)
}

// Match implements Filter.
func (f Present) Match(props map[string]any) bool {
	_, ok := lookup(props, f.Attr)
	return ok
}

// Match implements Filter.
func (f Substring) Match(props map[string]any) bool {
	v, ok := lookup(props, f.Attr)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return matchWildcard(val, f.Parts)
	case []string:
		for _, s := range val {
			if matchWildcard(s, f.Parts) {
				return true
			}
		}
	}
	return false
}

// lookup tries the exact key first, then a case-insensitive match.
func lookup(props map[string]any, key string) (any, bool) {
	if v, ok := props[key]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func compareProp(props map[string]any, key string, o op, operand string) bool {
	v, ok := lookup(props, key)
	if !ok {
		return false
	}
	return compareValue(v, o, operand)
}

func compareValue(v any, o op, operand string) bool {
	switch val := v.(type) {
	case string:
		return compareString(val, o, operand)
	case int:
		return compareInt(int64(val), o, operand)
	case int32:
		return compareInt(int64(val), o, operand)
	case int64:
		return compareInt(val, o, operand)
	case float32:
		return compareFloat(float64(val), o, operand)
	case float64:
		return compareFloat(val, o, operand)
	case bool:
		return compareBool(val, o, operand)
	case version.Version:
		return compareVersion(val, o, operand)
	case []string:
		return anyElement(val, o, operand)
	case []int64:
		return anyElement(val, o, operand)
	case []float64:
		return anyElement(val, o, operand)
	case []version.Version:
		return anyElement(val, o, operand)
	case []any:
		return anyElement(val, o, operand)
	default:
		return false
	}
}

func anyElement[T any](values []T, o op, operand string) bool {
	for _, e := range values {
		if compareValue(e, o, operand) {
			return true
		}
	}
	return false
}

func compareString(val string, o op, operand string) bool {
	switch o {
	case opApprox:
		return normalize(val) == normalize(operand)
	case opGreaterEq:
		return val >= operand
	case opLessEq:
		return val <= operand
	default:
		return val == operand
	}
}

func compareInt(val int64, o op, operand string) bool {
	n, err := strconv.ParseInt(strings.TrimSpace(operand), 10, 64)
	if err != nil {
		return false
	}
	return ordered(cmp.Compare(val, n), o)
}

func compareFloat(val float64, o op, operand string) bool {
	n, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return false
	}
	return ordered(cmp.Compare(val, n), o)
}

func compareBool(val bool, o op, operand string) bool {
	if o != opEqual && o != opApprox {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(operand))
	if err != nil {
		return false
	}
	return val == b
}

func compareVersion(val version.Version, o op, operand string) bool {
	v, err := version.Parse(operand)
	if err != nil {
		return false
	}
	return ordered(val.Compare(v), o)
}

func ordered(c int, o op) bool {
	switch o {
	case opGreaterEq:
		return c >= 0
	case opLessEq:
		return c <= 0
	default:
		return c == 0
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func matchWildcard(s string, parts []string) bool {
	switch len(parts) {
	case 0:
		return false
	case 1:
		return s == parts[0]
	}
	first, last := parts[0], parts[len(parts)-1]
	if !strings.HasPrefix(s, first) {
		return false
	}
	s = s[len(first):]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(s, mid)
		if i < 0 {
			return false
		}
		s = s[i+len(mid):]
	}
	return strings.HasSuffix(s, last)
}
