// SPDX-License-Identifier: MPL-2.0

package filter

import (
	"strings"
)

type parser struct {
	src string
	pos int
}

// Parse parses an LDAP-style filter string.
func Parse(s string) (Filter, error) {
	p := &parser{src: s}
	p.skipSpace()
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.fail("unexpected trailing input")
	}
	return f, nil
}

func (p *parser) fail(reason string) error {
	return &SyntaxError{Filter: p.src, Offset: p.pos, Reason: reason}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.fail("expected '" + string(c) + "'")
	}
	p.pos++
	return nil
}

func (p *parser) filter() (Filter, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()

	var (
		f   Filter
		err error
	)
	switch p.peek() {
	case '&':
		p.pos++
		var ops []Filter
		ops, err = p.list()
		f = And{Operands: ops}
	case '|':
		p.pos++
		var ops []Filter
		ops, err = p.list()
		f = Or{Operands: ops}
	case '!':
		p.pos++
		p.skipSpace()
		var op Filter
		op, err = p.filter()
		f = Not{Operand: op}
	default:
		f, err = p.item()
	}
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) list() ([]Filter, error) {
	var ops []Filter
	for {
		p.skipSpace()
		if p.peek() != '(' {
			break
		}
		f, err := p.filter()
		if err != nil {
			return nil, err
		}
		ops = append(ops, f)
	}
	if len(ops) == 0 {
		return nil, p.fail("composite filter needs at least one operand")
	}
	return ops, nil
}

func (p *parser) item() (Filter, error) {
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("=~<>()", rune(p.src[p.pos])) {
		p.pos++
	}
	attr := strings.TrimSpace(p.src[start:p.pos])
	if attr == "" {
		return nil, p.fail("missing attribute name")
	}

	var op string
	switch p.peek() {
	case '=':
		op = "="
		p.pos++
	case '~', '>', '<':
		c := p.src[p.pos]
		p.pos++
		if p.peek() != '=' {
			return nil, p.fail("expected '=' after '" + string(c) + "'")
		}
		p.pos++
		op = string(c) + "="
	default:
		return nil, p.fail("missing comparison operator")
	}

	parts, err := p.value()
	if err != nil {
		return nil, err
	}

	if op == "=" && len(parts) > 1 {
		if len(parts) == 2 && parts[0] == "" && parts[1] == "" {
			return Present{Attr: attr}, nil
		}
		return Substring{Attr: attr, Parts: parts}, nil
	}
	if len(parts) > 1 {
		return nil, p.fail("wildcard not allowed with operator " + op)
	}

	switch op {
	case "~=":
		return Approx{Attr: attr, Value: parts[0]}, nil
	case ">=":
		return GreaterEq{Attr: attr, Value: parts[0]}, nil
	case "<=":
		return LessEq{Attr: attr, Value: parts[0]}, nil
	default:
		return Equal{Attr: attr, Value: parts[0]}, nil
	}
}

// value reads up to the closing ')' and splits on unescaped '*'.
func (p *parser) value() ([]string, error) {
	var (
		parts []string
		sb    strings.Builder
	)
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case ')':
			return append(parts, sb.String()), nil
		case '(':
			return nil, p.fail("unescaped '(' in value")
		case '*':
			parts = append(parts, sb.String())
			sb.Reset()
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, p.fail("dangling escape")
			}
			p.pos++
			sb.WriteByte(p.src[p.pos])
		default:
			sb.WriteByte(c)
		}
		p.pos++
	}
	return nil, p.fail("unterminated filter")
}
