package document

import (
	"errors"
	"strconv"
)

// Parse errors. Their text is part of the wire protocol: the command layer
// echoes them back to clients verbatim.
var (
	// ErrInvalidValue is returned when a value starts with an unexpected byte.
	ErrInvalidValue = errors.New("Invalid value")
	// ErrInvalidToken is returned for malformed literals, numbers and separators.
	ErrInvalidToken = errors.New("Invalid token")
	// ErrInvalidData is returned when the input ends before the value does.
	ErrInvalidData = errors.New("Invalid data")
	// ErrInvalidKey is returned when an object key is not a string.
	ErrInvalidKey = errors.New("Invalid key")
)

// Parse parses text into a Value. Empty input parses to Null. Anything after
// the first complete value is ignored.
//
// Backslashes inside strings protect the following byte from terminating the
// string but are otherwise kept as written: `"a\nb"` holds four characters.
func Parse(text string) (*Value, error) {
	if text == "" {
		return Null(), nil
	}
	p := &parser{data: []byte(text)}
	p.skipWhitespace()
	if p.eof() {
		return nil, ErrInvalidData
	}
	return p.parseValue()
}

// MustParse is like Parse but panics on error. Intended for tests and
// static initialisation.
func MustParse(text string) *Value {
	v, err := Parse(text)
	if err != nil {
		panic("document: Parse(" + strconv.Quote(text) + "): " + err.Error())
	}
	return v
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}
}

// skipToToken skips whitespace and fails if nothing is left.
func (p *parser) skipToToken() error {
	p.skipWhitespace()
	if p.eof() {
		return ErrInvalidData
	}
	return nil
}

func (p *parser) parseValue() (*Value, error) {
	if p.eof() {
		return nil, ErrInvalidData
	}
	switch c := p.data[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case c == 't' || c == 'f':
		return p.parseBoolean()
	case c == 'n':
		return p.parseNull()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, ErrInvalidValue
	}
}

func (p *parser) parseObject() (*Value, error) {
	members := make(map[string]*Value)
	p.pos++ // {
	if err := p.skipToToken(); err != nil {
		return nil, err
	}
	if p.data[p.pos] == '}' {
		p.pos++
		return Object(members), nil
	}
	for {
		if p.data[p.pos] != '"' {
			return nil, ErrInvalidKey
		}
		key, err := p.parseString()
		if err != nil {
			return nil, ErrInvalidKey
		}

		if err := p.skipToToken(); err != nil {
			return nil, err
		}
		if p.data[p.pos] != ':' {
			return nil, ErrInvalidToken
		}
		p.pos++
		if err := p.skipToToken(); err != nil {
			return nil, err
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		members[key] = value

		if err := p.skipToToken(); err != nil {
			return nil, err
		}
		switch p.data[p.pos] {
		case '}':
			p.pos++
			return Object(members), nil
		case ',':
			p.pos++
		default:
			return nil, ErrInvalidToken
		}
		if err := p.skipToToken(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseArray() (*Value, error) {
	elems := []*Value{}
	p.pos++ // [
	if err := p.skipToToken(); err != nil {
		return nil, err
	}
	if p.data[p.pos] == ']' {
		p.pos++
		return Array(elems...), nil
	}
	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		elems = append(elems, value)

		if err := p.skipToToken(); err != nil {
			return nil, err
		}
		switch p.data[p.pos] {
		case ']':
			p.pos++
			return Array(elems...), nil
		case ',':
			p.pos++
		default:
			return nil, ErrInvalidToken
		}
		if err := p.skipToToken(); err != nil {
			return nil, err
		}
	}
}

// parseString expects the cursor on the opening quote and returns the raw
// bytes up to the closing quote.
func (p *parser) parseString() (string, error) {
	p.pos++ // "
	start := p.pos
	for {
		if p.eof() {
			return "", ErrInvalidData
		}
		switch p.data[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			s := string(p.data[start:p.pos])
			p.pos++
			return s, nil
		default:
			p.pos++
		}
	}
}

// hasPrefix reports whether the unread input starts with lit. Running out of
// input is reported as ErrInvalidData.
func (p *parser) hasPrefix(lit string) (bool, error) {
	if len(p.data)-p.pos < len(lit) {
		return false, ErrInvalidData
	}
	return string(p.data[p.pos:p.pos+len(lit)]) == lit, nil
}

func (p *parser) parseBoolean() (*Value, error) {
	for _, lit := range [...]struct {
		text  string
		value bool
	}{{"true", true}, {"false", false}} {
		if p.data[p.pos] != lit.text[0] {
			continue
		}
		ok, err := p.hasPrefix(lit.text)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidToken
		}
		p.pos += len(lit.text)
		return Boolean(lit.value), nil
	}
	return nil, ErrInvalidToken
}

func (p *parser) parseNull() (*Value, error) {
	ok, err := p.hasPrefix("null")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	p.pos += 4
	return Null(), nil
}

func (p *parser) parseNumber() (*Value, error) {
	start := p.pos
	var decimal, exponent bool
	if p.data[p.pos] == '-' {
		p.pos++
	}
scan:
	for !p.eof() {
		switch c := p.data[p.pos]; {
		case c >= '0' && c <= '9':
		case c == '.':
			if decimal {
				return nil, ErrInvalidToken
			}
			decimal = true
		case c == 'e' || c == 'E':
			if exponent {
				return nil, ErrInvalidToken
			}
			exponent = true
		case c == '-' || c == '+':
			if !exponent {
				return nil, ErrInvalidToken
			}
		default:
			break scan
		}
		p.pos++
	}

	text := string(p.data[start:p.pos])
	if decimal || exponent {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ErrInvalidToken
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return Integer(i), nil
}
