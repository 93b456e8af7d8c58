// SPDX-License-Identifier: MPL-2.0

package header

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

const (
	// DuplicateMarker is appended to clause names (one or more times) so that
	// the same logical name can appear repeatedly in one header.
	DuplicateMarker = '~'

	// DirectiveMarker terminates a parameter key that names a directive ("key:=value").
	DirectiveMarker = ':'
)

// ErrSyntax is the sentinel error wrapped by SyntaxError.
var ErrSyntax = errors.New("header syntax error")

type (
	// Clause is one comma-separated entry of a header: a name plus its
	// attributes and directives. Typed attributes ("key:Type=value") are
	// stored under their raw key including the type suffix.
	Clause struct {
		Name       string
		Attributes map[string]string
		Directives map[string]string
	}

	// SyntaxError identifies the clause that could not be parsed.
	SyntaxError struct {
		// Clause is the 1-based index of the offending clause.
		Clause int
		// Text is the clause source up to the point of failure.
		Text   string
		Reason string
	}

	parser struct {
		src string
		pos int
	}
)

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("header syntax error in clause %d (%q): %s", e.Clause, e.Text, e.Reason)
}

// Unwrap returns ErrSyntax so callers can use errors.Is for programmatic detection.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// StripDuplicateMarker removes any trailing duplicate markers from name.
func StripDuplicateMarker(name string) string {
	return strings.TrimRight(name, string(DuplicateMarker))
}

// Attribute returns the attribute value for key.
func (c Clause) Attribute(key string) (string, bool) {
	v, ok := c.Attributes[key]
	return v, ok
}

// Directive returns the directive value for key (without the ':' marker).
func (c Clause) Directive(key string) (string, bool) {
	v, ok := c.Directives[key]
	return v, ok
}

// Clone returns a deep copy of the clause.
func (c Clause) Clone() Clause {
	return Clause{
		Name:       c.Name,
		Attributes: maps.Clone(c.Attributes),
		Directives: maps.Clone(c.Directives),
	}
}

// ParseHeader splits raw into clauses in source order. A blank header yields
// no clauses. Any syntax error rejects the whole header.
func ParseHeader(raw string) ([]Clause, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	p := &parser{src: raw}
	var clauses []Clause
	for index := 1; ; index++ {
		parsed, more, err := p.clause(index)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, parsed...)
		if !more {
			return clauses, nil
		}
	}
}

// clause parses "name (';' name)* (';' param)*" and reports whether another
// clause follows.
func (p *parser) clause(index int) ([]Clause, bool, error) {
	start := p.pos
	fail := func(reason string) error {
		return &SyntaxError{Clause: index, Text: strings.TrimSpace(p.src[start:p.pos]), Reason: reason}
	}

	var names []string
	attrs := make(map[string]string)
	dirs := make(map[string]string)
	inParams := false

	for {
		tok, delim, err := p.token(";,=")
		if err != nil {
			return nil, false, fail(err.Error())
		}

		if delim == '=' {
			if len(names) == 0 {
				return nil, false, fail("parameter before clause name")
			}
			if tok == "" {
				return nil, false, fail("empty parameter key")
			}
			val, next, err := p.token(";,")
			if err != nil {
				return nil, false, fail(err.Error())
			}
			inParams = true
			if key, ok := strings.CutSuffix(tok, string(DirectiveMarker)); ok {
				key = strings.TrimSpace(key)
				if key == "" {
					return nil, false, fail("empty directive key")
				}
				dirs[key] = val
			} else {
				attrs[tok] = val
			}
			delim = next
		} else {
			if inParams {
				return nil, false, fail(fmt.Sprintf("parameter %q is missing '='", tok))
			}
			name := StripDuplicateMarker(tok)
			if name == "" {
				return nil, false, fail("empty clause name")
			}
			names = append(names, name)
		}

		switch delim {
		case ';':
			continue
		case ',':
			return expand(names, attrs, dirs), true, nil
		default:
			return expand(names, attrs, dirs), false, nil
		}
	}
}

// expand gives every name declared in one clause its own copy of the parameters.
func expand(names []string, attrs, dirs map[string]string) []Clause {
	out := make([]Clause, 0, len(names))
	for _, name := range names {
		out = append(out, Clause{
			Name:       name,
			Attributes: maps.Clone(attrs),
			Directives: maps.Clone(dirs),
		})
	}
	return out
}

// token reads up to the next unquoted stop byte and returns the token with
// surrounding whitespace removed. Whitespace inside quotes is preserved and a
// backslash inside quotes escapes the following byte. delim is 0 at end of input.
func (p *parser) token(stops string) (string, byte, error) {
	var sb strings.Builder
	var pending strings.Builder

	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"':
			sb.WriteString(pending.String())
			pending.Reset()
			if err := p.quoted(&sb); err != nil {
				return "", 0, err
			}
			continue
		case strings.IndexByte(stops, c) >= 0:
			p.pos++
			return sb.String(), c, nil
		case isSpace(c):
			pending.WriteByte(c)
		default:
			sb.WriteString(pending.String())
			pending.Reset()
			sb.WriteByte(c)
		}
		p.pos++
	}
	return sb.String(), 0, nil
}

func (p *parser) quoted(sb *strings.Builder) error {
	open := p.pos
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.src) {
				sb.WriteByte(p.src[p.pos+1])
				p.pos += 2
				continue
			}
		case '"':
			p.pos++
			return nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	p.pos = len(p.src)
	return fmt.Errorf("unterminated quote starting at offset %d", open)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
