package sexp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// ParseError describes a fatal syntax error. Parsing never returns a
// partial tree; the first error aborts the whole load.
type ParseError struct {
	Line    int
	Column  int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sexp: parse error at line %d, column %d near %q: %s",
		e.Line, e.Column, e.Token, e.Message)
}

// Parse reads a complete S-expression document and returns the root node.
// Every node records the exact byte range it occupied in src.
func Parse(src []byte) (*Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	// Only whitespace may follow the root expression.
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != lexer.EOF {
		return nil, p.errorf(tok, "trailing content after document root")
	}

	return root, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(src string) (*Node, error) {
	return Parse([]byte(src))
}

type parser struct {
	src []byte
	lex lexer.Lexer
}

func newParser(src []byte) (*parser, error) {
	lex, err := schematicLexer.Lex("", bytes.NewReader(src))
	if err != nil {
		return nil, &ParseError{Line: 1, Column: 1, Message: err.Error()}
	}
	return &parser{src: src, lex: lex}, nil
}

// next returns the next significant token, skipping whitespace.
func (p *parser) next() (lexer.Token, error) {
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return lexer.Token{}, lexerError(err)
		}
		if tok.Type == tokWhitespace {
			continue
		}
		return tok, nil
	}
}

func (p *parser) parseExpr() (*Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case tokLParen:
		return p.parseList(tok)
	case tokString:
		value, err := decodeString(tok.Value)
		if err != nil {
			return nil, p.errorf(tok, err.Error())
		}
		return p.atom(tok, value, true), nil
	case tokSymbol:
		return p.atom(tok, tok.Value, false), nil
	case tokRParen:
		return nil, p.errorf(tok, "unexpected ')'")
	case lexer.EOF:
		return nil, p.errorf(tok, "unexpected end of input")
	default:
		return nil, p.errorf(tok, "unexpected token")
	}
}

// parseList consumes elements until the matching ')'. open is the already
// consumed '(' token.
func (p *parser) parseList(open lexer.Token) (*Node, error) {
	n := &Node{
		kind:    KindList,
		span:    Span{Start: open.Pos.Offset},
		hasSpan: true,
	}

	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case tokRParen:
			n.span.End = tok.Pos.Offset + len(tok.Value)
			return n, nil
		case lexer.EOF:
			return nil, p.errorf(tok, "unbalanced parenthesis: list opened at offset "+
				fmt.Sprint(open.Pos.Offset)+" is never closed")
		case tokLParen:
			child, err := p.parseList(tok)
			if err != nil {
				return nil, err
			}
			n.append(child)
		case tokString:
			value, err := decodeString(tok.Value)
			if err != nil {
				return nil, p.errorf(tok, err.Error())
			}
			n.append(p.atom(tok, value, true))
		case tokSymbol:
			n.append(p.atom(tok, tok.Value, false))
		default:
			return nil, p.errorf(tok, "unexpected token")
		}
	}
}

func (p *parser) atom(tok lexer.Token, value string, quoted bool) *Node {
	return &Node{
		kind:    KindAtom,
		value:   value,
		quoted:  quoted,
		span:    Span{Start: tok.Pos.Offset, End: tok.Pos.Offset + len(tok.Value)},
		hasSpan: true,
	}
}

func (p *parser) errorf(tok lexer.Token, message string) error {
	token := tok.Value
	if tok.Type == lexer.EOF {
		token = "<eof>"
	}
	return &ParseError{
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Token:   token,
		Message: message,
	}
}

// lexerError converts a tokenizer failure into a ParseError.
func lexerError(err error) error {
	if perr, ok := err.(*ParseError); ok {
		return perr
	}
	if lerr, ok := err.(*lexer.Error); ok {
		return &ParseError{
			Line:    lerr.Pos.Line,
			Column:  lerr.Pos.Column,
			Message: lerr.Msg,
		}
	}
	return &ParseError{Line: 1, Column: 1, Message: err.Error()}
}

// decodeString strips the surrounding quotes from a raw string token and
// resolves backslash escapes.
func decodeString(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", fmt.Errorf("malformed string literal")
	}
	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling backslash in string literal")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			// KiCad passes unknown escapes through unchanged.
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// encodeString renders a decoded value as a quoted string literal.
func encodeString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
