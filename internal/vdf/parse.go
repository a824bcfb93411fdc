package vdf

import (
	"bytes"
	"fmt"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports malformed input. Offset is a byte offset into the
// original input.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vdf: %s at offset %d", e.Msg, e.Offset)
}

// ParseString is Parse for string input.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

// Parse reads a whole document. The returned Node has an empty Key and holds
// the top-level entries in file order.
//
// Tokens are double-quoted strings and the braces. A quoted token followed
// by another quoted token is a key/value pair; followed by '{' it opens a
// block. Inside quotes, \" \\ \n and \t are unescaped; any other backslash is
// kept literally. Whitespace between tokens is not preserved.
func Parse(data []byte) (*Node, error) {
	p := &parser{data: data}
	if bytes.HasPrefix(data, utf8BOM) {
		p.pos = len(utf8BOM)
	}
	return p.parse()
}

type frame struct {
	node *Node
	open int
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) parse() (*Node, error) {
	doc := &Node{}
	stack := []frame{{node: doc, open: -1}}

	var (
		key       string
		keyOffset int
		haveKey   bool
	)

	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			break
		}
		top := stack[len(stack)-1].node

		switch c := p.data[p.pos]; c {
		case '"':
			start := p.pos
			tok, err := p.quoted()
			if err != nil {
				return nil, err
			}
			if !haveKey {
				key, keyOffset, haveKey = tok, start, true
				continue
			}
			top.Children = append(top.Children, KeyValue(key, tok))
			haveKey = false
		case '{':
			if !haveKey {
				return nil, &ParseError{Offset: p.pos, Msg: "block has no key"}
			}
			child := NewNode(key)
			top.Children = append(top.Children, KeyNode(key, child))
			stack = append(stack, frame{node: child, open: p.pos})
			haveKey = false
			p.pos++
		case '}':
			if haveKey {
				return nil, &ParseError{Offset: keyOffset, Msg: fmt.Sprintf("key %q has no value", key)}
			}
			if len(stack) == 1 {
				return nil, &ParseError{Offset: p.pos, Msg: "unmatched closing brace"}
			}
			stack = stack[:len(stack)-1]
			p.pos++
		default:
			return nil, &ParseError{Offset: p.pos, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	if haveKey {
		return nil, &ParseError{Offset: keyOffset, Msg: fmt.Sprintf("key %q has no value", key)}
	}
	if len(stack) > 1 {
		f := stack[len(stack)-1]
		return nil, &ParseError{Offset: f.open, Msg: fmt.Sprintf("block %q is not closed", f.node.Key)}
	}
	if len(doc.Children) == 0 {
		return nil, &ParseError{Offset: p.pos, Msg: "empty document"}
	}
	return doc, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			p.pos++
		default:
			return
		}
	}
}

// quoted consumes a quoted token starting at the opening quote.
func (p *parser) quoted() (string, error) {
	start := p.pos
	var sb strings.Builder
	for i := start + 1; i < len(p.data); i++ {
		c := p.data[i]
		if c == '\\' && i+1 < len(p.data) {
			if r, ok := unescape(p.data[i+1]); ok {
				sb.WriteByte(r)
				i++
				continue
			}
		}
		if c == '"' {
			p.pos = i + 1
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
	return "", &ParseError{Offset: start, Msg: "unterminated quoted string"}
}

func unescape(c byte) (byte, bool) {
	switch c {
	case '"':
		return '"', true
	case '\\':
		return '\\', true
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	}
	return 0, false
}
