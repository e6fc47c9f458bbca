package typeexpr

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxDepth bounds nesting so pathological input is rejected instead of
// exhausting the stack.
const MaxDepth = 32

// SyntaxError describes why a type expression could not be parsed
type SyntaxError struct {
	Expr    string // Original expression
	Offset  int    // Byte offset of the offending token
	Message string
}

// Error returns a formatted error message
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid type expression %q at offset %d: %s", e.Expr, e.Offset, e.Message)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLAngle
	tokRAngle
	tokComma
	tokPipe
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokColon
	tokQuestion
	tokArrow
	tokDot
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "identifier"
	case tokLAngle:
		return "'<'"
	case tokRAngle:
		return "'>'"
	case tokComma:
		return "','"
	case tokPipe:
		return "'|'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokColon:
		return "':'"
	case tokQuestion:
		return "'?'"
	case tokArrow:
		return "'=>'"
	case tokDot:
		return "'.'"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var punctuation = map[byte]tokenKind{
	'<': tokLAngle,
	'>': tokRAngle,
	',': tokComma,
	'|': tokPipe,
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	':': tokColon,
	'?': tokQuestion,
	'.': tokDot,
}

// lex splits src into tokens. ">>" is always two closing brackets.
func lex(src string) ([]token, error) {
	tokens := make([]token, 0, len(src)/2+1)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '=':
			if i+1 >= len(src) || src[i+1] != '>' {
				return nil, &SyntaxError{Expr: src, Offset: i, Message: "expected '=>'"}
			}
			tokens = append(tokens, token{kind: tokArrow, text: "=>", pos: i})
			i += 2
		case isIdentStart(rune(c)):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			kind, ok := punctuation[c]
			if !ok {
				return nil, &SyntaxError{Expr: src, Offset: i, Message: fmt.Sprintf("unexpected character %q", c)}
			}
			tokens = append(tokens, token{kind: kind, text: string(c), pos: i})
			i++
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

type parser struct {
	src   string
	toks  []token
	pos   int
	depth int
}

// Parse parses a type expression string into its structured form
func Parse(src string) (Expr, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, &SyntaxError{Expr: src, Message: "type expression is empty"}
	}

	toks, err := lex(trimmed)
	if err != nil {
		return nil, err
	}

	p := &parser{src: trimmed, toks: toks}
	expr, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s after complete expression", tok.kind)
	}
	return expr, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(src string) Expr {
	expr, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return expr
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, found %s", kind, tok.kind)
	}
	return tok, nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Offset: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseUnion() (Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return nil, p.errorf(p.peek(), "nesting exceeds maximum depth of %d", MaxDepth)
	}

	first, err := p.parseMember()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPipe {
		return first, nil
	}

	members := []Expr{first}
	for p.peek().kind == tokPipe {
		p.next()
		member, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return Union{Members: members}, nil
}

func (p *parser) parseMember() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	// T[] and T[][] desugar to nested Array generics; each level counts
	// towards MaxDepth like an explicit Array<T>
	nested := 0
	defer func() { p.depth -= nested }()
	for p.peek().kind == tokLBracket {
		p.next()
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		nested++
		p.depth++
		if p.depth > MaxDepth {
			return nil, p.errorf(p.peek(), "nesting exceeds maximum depth of %d", MaxDepth)
		}
		expr = Generic{Base: "Array", Args: []Expr{expr}}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		if p.isArrowFunction() {
			return p.parseFunction()
		}
		p.next()
		inner, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseNamed()
	case tokEOF:
		return nil, p.errorf(tok, "unexpected end of expression")
	default:
		return nil, p.errorf(tok, "unexpected %s", tok.kind)
	}
}

// isArrowFunction looks past the parenthesised group at the cursor and
// reports whether it is followed by "=>".
func (p *parser) isArrowFunction() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].kind == tokArrow
			}
		case tokEOF:
			return false
		}
	}
	return false
}

func (p *parser) parseFunction() (Expr, error) {
	p.next() // (

	var params []Param
	if p.peek().kind != tokRParen {
		for {
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}

	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokArrow); err != nil {
		return nil, err
	}

	ret, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	return Function{Params: params, Return: ret}, nil
}

func (p *parser) parseParam() (Param, error) {
	if p.peek().kind == tokIdent {
		after := p.toks[p.pos+1].kind
		optional := after == tokQuestion && p.toks[p.pos+2].kind == tokColon
		if after == tokColon || optional {
			name := p.next().text
			if optional {
				p.next()
			}
			p.next() // :
			typ, err := p.parseUnion()
			if err != nil {
				return Param{}, err
			}
			return Param{Name: name, Optional: optional, Type: typ}, nil
		}
	}

	typ, err := p.parseUnion()
	if err != nil {
		return Param{}, err
	}
	return Param{Type: typ}, nil
}

func (p *parser) parseNamed() (Expr, error) {
	first := p.next()
	module, name := "", first.text

	if p.peek().kind == tokDot {
		p.next()
		tok, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		module, name = first.text, tok.text
		if p.peek().kind == tokDot {
			return nil, p.errorf(p.peek(), "qualified names take the form module.Type")
		}
	}

	if p.peek().kind == tokLAngle {
		p.next()
		var args []Expr
		for len(args) > 0 || p.peek().kind != tokRAngle {
			arg, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		closing, err := p.expect(tokRAngle)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, p.errorf(closing, "empty type argument list")
		}

		base := name
		if module != "" {
			base = module + "." + name
		}
		return Generic{Base: base, Args: args}, nil
	}

	if module == "" && IsPrimitive(name) {
		return Primitive{Name: name}, nil
	}
	return Reference{Module: module, Name: name}, nil
}
