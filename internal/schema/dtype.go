package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLayout parses the text produced by Layout.String. The leading
// "dtype =" is optional and surrounding whitespace is ignored.
func ParseLayout(text string) (Layout, error) {
	p := &dtypeParser{s: strings.TrimSpace(text)}
	if rest, ok := strings.CutPrefix(p.s, "dtype"); ok {
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "=") {
			return Layout{}, fmt.Errorf("dtype: expected '=' after dtype")
		}
		p.s = rest[1:]
	}

	var l Layout
	if err := p.expect('['); err != nil {
		return Layout{}, err
	}
	if p.peek() == ']' {
		p.pos++
		return l, p.end()
	}
	for {
		f, err := p.field()
		if err != nil {
			return Layout{}, err
		}
		l.Fields = append(l.Fields, f)
		switch p.next() {
		case ',':
			continue
		case ']':
			if err := p.end(); err != nil {
				return Layout{}, err
			}
			if err := l.Validate(); err != nil {
				return Layout{}, fmt.Errorf("dtype: %w", err)
			}
			return l, nil
		default:
			return Layout{}, p.errorf("expected ',' or ']'")
		}
	}
}

type dtypeParser struct {
	s   string
	pos int
}

func (p *dtypeParser) skip() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r') {
		p.pos++
	}
}

func (p *dtypeParser) peek() byte {
	p.skip()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *dtypeParser) next() byte {
	c := p.peek()
	if c != 0 {
		p.pos++
	}
	return c
}

func (p *dtypeParser) expect(c byte) error {
	if p.next() != c {
		return p.errorf("expected %q", c)
	}
	return nil
}

func (p *dtypeParser) end() error {
	if p.peek() != 0 {
		return p.errorf("trailing text")
	}
	return nil
}

func (p *dtypeParser) errorf(format string, a ...any) error {
	return fmt.Errorf("dtype: offset %d: %s", p.pos, fmt.Sprintf(format, a...))
}

func (p *dtypeParser) quoted() (string, error) {
	q := p.next()
	if q != '\'' && q != '"' {
		return "", p.errorf("expected quoted string")
	}
	end := strings.IndexByte(p.s[p.pos:], q)
	if end < 0 {
		return "", p.errorf("unterminated string")
	}
	v := p.s[p.pos : p.pos+end]
	p.pos += end + 1
	return v, nil
}

func (p *dtypeParser) int() (int, error) {
	p.skip()
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected integer")
	}
	return strconv.Atoi(p.s[start:p.pos])
}

// field parses ('name', 'type') or ('name', 'type', (d0, d1, ...)).
func (p *dtypeParser) field() (Field, error) {
	var f Field
	if err := p.expect('('); err != nil {
		return f, err
	}
	name, err := p.quoted()
	if err != nil {
		return f, err
	}
	if err := p.expect(','); err != nil {
		return f, err
	}
	ts, err := p.quoted()
	if err != nil {
		return f, err
	}
	t, err := ParseType(ts)
	if err != nil {
		return f, fmt.Errorf("dtype: field %q: %w", name, err)
	}
	f.Name, f.Type = name, t

	switch p.next() {
	case ')':
		return f, nil
	case ',':
	default:
		return f, p.errorf("expected ',' or ')'")
	}

	if p.peek() != '(' {
		// Bare integer shape, e.g. ('X', '<f4', 3).
		d, err := p.int()
		if err != nil {
			return f, err
		}
		f.Shape = []int{d}
		return f, p.expect(')')
	}
	p.pos++
	for p.peek() != ')' {
		d, err := p.int()
		if err != nil {
			return f, err
		}
		f.Shape = append(f.Shape, d)
		if p.peek() == ',' {
			p.pos++
		}
	}
	p.pos++
	return f, p.expect(')')
}
