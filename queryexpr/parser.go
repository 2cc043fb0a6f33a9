package queryexpr

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// maxDepth bounds nesting of lists, objects and calls.
const maxDepth = 64

// Parse parses an expression into its syntax tree. The accepted grammar is
// closed: builder calls, arrays, objects and JSON-like scalars. Nothing is
// evaluated here. Input that holds only whitespace and comments yields (nil, nil).
func Parse(input string) (Node, error) {
	tok := newTokenizer(input)
	tokens, err := tok.tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{
		tokens: tokens,
		tzer:   tok,
	}
	return p.parseProgram()
}

// --- Token types ---

type tokenType int

const (
	tokenIdent    tokenType = iota // identifier: letters, digits, underscores, '$'
	tokenString                    // quoted "..." or '...'
	tokenNumber                    // JSON number with optional leading '-'
	tokenLParen                    // (
	tokenRParen                    // )
	tokenLBracket                  // [
	tokenRBracket                  // ]
	tokenLBrace                    // {
	tokenRBrace                    // }
	tokenComma                     // ,
	tokenColon                     // :
	tokenDot                       // .
	tokenEOF
)

func tokenTypeName(t tokenType) string {
	switch t {
	case tokenIdent:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenComma:
		return "','"
	case tokenColon:
		return "':'"
	case tokenDot:
		return "'.'"
	case tokenEOF:
		return "end of input"
	default:
		return "unknown"
	}
}

type token struct {
	typ tokenType
	val string
	pos int // byte offset in input
}

// --- Tokenizer ---

type tokenizer struct {
	input      string
	pos        int
	tokens     []token
	lineStarts []int // byte offsets where each line starts
}

func newTokenizer(input string) *tokenizer {
	t := &tokenizer{
		input:      input,
		lineStarts: []int{0},
	}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			t.lineStarts = append(t.lineStarts, i+1)
		}
	}
	return t
}

// posAt converts a byte offset into a Pos with line and column.
func (t *tokenizer) posAt(offset int) Pos {
	line := sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	})
	col := offset - t.lineStarts[line-1] + 1
	return Pos{Offset: offset, Line: line, Column: col}
}

func (t *tokenizer) tokenize() ([]token, error) {
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			t.pos++
			continue
		}
		switch ch {
		case '(':
			t.emit(tokenLParen, "(")
		case ')':
			t.emit(tokenRParen, ")")
		case '[':
			t.emit(tokenLBracket, "[")
		case ']':
			t.emit(tokenRBracket, "]")
		case '{':
			t.emit(tokenLBrace, "{")
		case '}':
			t.emit(tokenRBrace, "}")
		case ',':
			t.emit(tokenComma, ",")
		case ':':
			t.emit(tokenColon, ":")
		case '.':
			t.emit(tokenDot, ".")
		case '"', '\'':
			if err := t.readString(ch); err != nil {
				return nil, err
			}
		case '/':
			if err := t.skipComment(); err != nil {
				return nil, err
			}
		default:
			switch {
			case ch == '-' || isDigit(ch):
				if err := t.readNumber(); err != nil {
					return nil, err
				}
			case isIdentStart(ch):
				t.readIdent()
			default:
				return nil, &ParseError{
					Message: fmt.Sprintf("unexpected character %q", string(ch)),
					Pos:     t.posAt(t.pos),
					Got:     string(ch),
				}
			}
		}
	}
	t.tokens = append(t.tokens, token{typ: tokenEOF, pos: t.pos})
	return t.tokens, nil
}

func (t *tokenizer) emit(typ tokenType, val string) {
	t.tokens = append(t.tokens, token{typ: typ, val: val, pos: t.pos})
	t.pos++
}

func (t *tokenizer) skipComment() error {
	start := t.pos
	if strings.HasPrefix(t.input[t.pos:], "//") {
		end := strings.IndexByte(t.input[t.pos:], '\n')
		if end < 0 {
			t.pos = len(t.input)
		} else {
			t.pos += end + 1
		}
		return nil
	}
	if strings.HasPrefix(t.input[t.pos:], "/*") {
		end := strings.Index(t.input[t.pos+2:], "*/")
		if end < 0 {
			return &ParseError{
				Message: "unterminated block comment",
				Pos:     t.posAt(start),
			}
		}
		t.pos += 2 + end + 2
		return nil
	}
	return &ParseError{
		Message: "unexpected character \"/\"",
		Pos:     t.posAt(start),
		Got:     "/",
	}
}

func (t *tokenizer) readString(quote byte) error {
	startPos := t.pos
	t.pos++ // skip opening quote
	var result strings.Builder
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		switch {
		case ch == quote:
			t.tokens = append(t.tokens, token{typ: tokenString, val: result.String(), pos: startPos})
			t.pos++
			return nil
		case ch == '\n':
			return &ParseError{
				Message: "unterminated string literal",
				Pos:     t.posAt(startPos),
				Got:     t.input[startPos:t.pos],
			}
		case ch == '\\':
			if err := t.readEscape(&result); err != nil {
				return err
			}
			continue
		}
		result.WriteByte(ch)
		t.pos++
	}
	return &ParseError{
		Message: "unterminated string literal",
		Pos:     t.posAt(startPos),
		Got:     t.input[startPos:],
	}
}

// readEscape decodes the escape sequence at t.pos (which holds the backslash).
func (t *tokenizer) readEscape(out *strings.Builder) error {
	escPos := t.pos
	if t.pos+1 >= len(t.input) {
		return &ParseError{Message: "unterminated string literal", Pos: t.posAt(escPos)}
	}
	next := t.input[t.pos+1]
	t.pos += 2
	switch next {
	case '"', '\'', '\\', '/':
		out.WriteByte(next)
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'n':
		out.WriteByte('\n')
	case 'r':
		out.WriteByte('\r')
	case 't':
		out.WriteByte('\t')
	case 'u':
		r, err := t.readHex4(escPos)
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) && strings.HasPrefix(t.input[t.pos:], `\u`) {
			save := t.pos
			t.pos += 2
			r2, err := t.readHex4(escPos)
			if err != nil {
				return err
			}
			if dec := utf16.DecodeRune(r, r2); dec != unicode.ReplacementChar {
				out.WriteRune(dec)
				return nil
			}
			t.pos = save
		}
		out.WriteRune(r)
	default:
		return &ParseError{
			Message: "invalid escape sequence",
			Pos:     t.posAt(escPos),
			Got:     `\` + string(next),
		}
	}
	return nil
}

func (t *tokenizer) readHex4(escPos int) (rune, error) {
	if t.pos+4 > len(t.input) {
		return 0, &ParseError{Message: "invalid unicode escape", Pos: t.posAt(escPos)}
	}
	n, err := strconv.ParseUint(t.input[t.pos:t.pos+4], 16, 16)
	if err != nil {
		return 0, &ParseError{
			Message: "invalid unicode escape",
			Pos:     t.posAt(escPos),
			Got:     t.input[escPos : t.pos+4],
		}
	}
	t.pos += 4
	return rune(n), nil
}

// readNumber scans a JSON number: -?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?
func (t *tokenizer) readNumber() error {
	start := t.pos
	fail := func() error {
		end := t.pos
		for end < len(t.input) && (isIdentChar(t.input[end]) || t.input[end] == '.') {
			end++
		}
		return &ParseError{
			Message: "malformed number",
			Pos:     t.posAt(start),
			Got:     t.input[start:end],
		}
	}
	if t.peekByte() == '-' {
		t.pos++
	}
	switch {
	case t.peekByte() == '0':
		t.pos++
	case isDigit(t.peekByte()):
		t.skipDigits()
	default:
		return fail()
	}
	if t.peekByte() == '.' {
		t.pos++
		if !isDigit(t.peekByte()) {
			return fail()
		}
		t.skipDigits()
	}
	if c := t.peekByte(); c == 'e' || c == 'E' {
		t.pos++
		if c := t.peekByte(); c == '+' || c == '-' {
			t.pos++
		}
		if !isDigit(t.peekByte()) {
			return fail()
		}
		t.skipDigits()
	}
	if isIdentChar(t.peekByte()) {
		return fail()
	}
	t.tokens = append(t.tokens, token{typ: tokenNumber, val: t.input[start:t.pos], pos: start})
	return nil
}

func (t *tokenizer) peekByte() byte {
	if t.pos < len(t.input) {
		return t.input[t.pos]
	}
	return 0
}

func (t *tokenizer) skipDigits() {
	for isDigit(t.peekByte()) {
		t.pos++
	}
}

func (t *tokenizer) readIdent() {
	start := t.pos
	for t.pos < len(t.input) && isIdentChar(t.input[t.pos]) {
		t.pos++
	}
	t.tokens = append(t.tokens, token{typ: tokenIdent, val: t.input[start:t.pos], pos: start})
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// --- Recursive Descent Parser ---

type parser struct {
	tokens []token
	pos    int
	depth  int
	tzer   *tokenizer
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF, pos: len(p.tzer.input)}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.peek()
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) unexpected(tok token, message, expected string) *ParseError {
	got := tok.val
	if tok.typ == tokenEOF {
		got = "end of input"
	}
	return &ParseError{
		Message:  message,
		Pos:      p.tzer.posAt(tok.pos),
		Got:      got,
		Expected: expected,
	}
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.advance()
	if tok.typ != typ {
		return tok, p.unexpected(tok, fmt.Sprintf("expected %s", tokenTypeName(typ)), tokenTypeName(typ))
	}
	return tok, nil
}

// parseProgram parses: [value] EOF
func (p *parser) parseProgram() (Node, error) {
	if p.peek().typ == tokenEOF {
		return nil, nil
	}
	n, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokenEOF {
		return nil, p.unexpected(tok, "unexpected input after expression", "end of input")
	}
	return n, nil
}

// parseValue parses: call | array | object | string | number | true | false | null
func (p *parser) parseValue() (Node, error) {
	tok := p.peek()
	switch tok.typ {
	case tokenLBracket, tokenLBrace, tokenIdent:
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return nil, &ParseError{
				Message: fmt.Sprintf("expression nested deeper than %d levels", maxDepth),
				Pos:     p.tzer.posAt(tok.pos),
			}
		}
	}

	switch tok.typ {
	case tokenLBracket:
		return p.parseList()
	case tokenLBrace:
		return p.parseObject()
	case tokenIdent:
		return p.parseIdent()
	case tokenString:
		p.advance()
		return &Literal{Value: tok.val, Pos: p.tzer.posAt(tok.pos)}, nil
	case tokenNumber:
		p.advance()
		return &Literal{Value: json.Number(tok.val), Pos: p.tzer.posAt(tok.pos)}, nil
	default:
		return nil, p.unexpected(tok, "expected a value", "call, array, object, string or number")
	}
}

// parseIdent parses a keyword literal or: ident ['.' ident] '(' [values] ')'
func (p *parser) parseIdent() (Node, error) {
	first := p.advance()
	pos := p.tzer.posAt(first.pos)

	next := p.peek().typ
	if next != tokenDot && next != tokenLParen {
		switch first.val {
		case "true":
			return &Literal{Value: true, Pos: pos}, nil
		case "false":
			return &Literal{Value: false, Pos: pos}, nil
		case "null":
			return &Literal{Value: nil, Pos: pos}, nil
		}
		return nil, &ParseError{
			Message:  fmt.Sprintf("%s is not defined", first.val),
			Pos:      pos,
			Got:      first.val,
			Expected: "a query builder call",
		}
	}

	call := &Call{Name: first.val, Pos: pos}
	if next == tokenDot {
		p.advance()
		name, err := p.expect(tokenIdent)
		if err != nil {
			return nil, err
		}
		call.Namespace = first.val
		call.Name = name.val
	}

	if _, err := p.expect(tokenLParen); err != nil {
		return nil, err
	}
	args, err := p.parseSequence(tokenRParen)
	if err != nil {
		return nil, err
	}
	call.Args = args
	return call, nil
}

// parseList parses: '[' [value {',' value} [',']] ']'
func (p *parser) parseList() (Node, error) {
	open := p.advance()
	items, err := p.parseSequence(tokenRBracket)
	if err != nil {
		return nil, err
	}
	return &List{Items: items, Pos: p.tzer.posAt(open.pos)}, nil
}

// parseSequence parses comma-separated values up to and including the closing token.
// A trailing comma is allowed.
func (p *parser) parseSequence(closing tokenType) ([]Node, error) {
	var items []Node
	for p.peek().typ != closing {
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		tok := p.peek()
		if tok.typ == tokenComma {
			p.advance()
			continue
		}
		if tok.typ != closing {
			return nil, p.unexpected(tok, fmt.Sprintf("expected ',' or %s", tokenTypeName(closing)),
				"',' or "+tokenTypeName(closing))
		}
	}
	p.advance() // consume closing token
	return items, nil
}

// parseObject parses: '{' [member {',' member} [',']] '}'
func (p *parser) parseObject() (Node, error) {
	open := p.advance()
	obj := &Object{Members: []Member{}, Pos: p.tzer.posAt(open.pos)}
	for p.peek().typ != tokenRBrace {
		key := p.advance()
		if key.typ != tokenIdent && key.typ != tokenString {
			return nil, p.unexpected(key, "expected object key", "identifier or string")
		}
		if _, err := p.expect(tokenColon); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj.Members = append(obj.Members, Member{Key: key.val, Value: value, Pos: p.tzer.posAt(key.pos)})

		tok := p.peek()
		if tok.typ == tokenComma {
			p.advance()
			continue
		}
		if tok.typ != tokenRBrace {
			return nil, p.unexpected(tok, "expected ',' or '}'", "',' or '}'")
		}
	}
	p.advance()
	return obj, nil
}
