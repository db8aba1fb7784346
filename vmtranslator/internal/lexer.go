package internal

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"nands/util"
)

// MaxInteger is the largest literal the vm accepts, the largest value a hack A instruction can load.
const MaxInteger = 32767

// Lexer splits vm source into tokens on demand. Whitespace and // comments produce no token. Once the input is
// exhausted every call to Next returns an EOF token.
type Lexer struct {
	src    string
	pos    int
	line   int
	column int
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// Reset rewinds the lexer to the start of its source.
func (lexer *Lexer) Reset() {
	lexer.pos, lexer.line, lexer.column = 0, 1, 1
}

func (lexer *Lexer) Next() (Token, error) {
	for lexer.pos < len(lexer.src) {
		c := lexer.src[lexer.pos]
		switch {
		case c == '\n':
			lexer.pos++
			lexer.line++
			lexer.column = 1
		case util.IsSpace(c):
			lexer.advance(1)
		case c == '/':
			if lexer.pos+1 >= len(lexer.src) || lexer.src[lexer.pos+1] != '/' {
				return Token{}, lexer.makeError(lexer.currentPos(), "/", "unexpected character")
			}
			lexer.skipComment()
		case util.IsNumber(c):
			return lexer.tokenNumber()
		case util.IsSymbolStart(c):
			return lexer.tokenWord(), nil
		default:
			r, _ := utf8.DecodeRuneInString(lexer.src[lexer.pos:])
			return Token{}, lexer.makeError(lexer.currentPos(), string(r), "unexpected character")
		}
	}
	return Token{Kind: EOFToken, Pos: lexer.currentPos()}, nil
}

func (lexer *Lexer) currentPos() Pos {
	return Pos{Line: lexer.line, Column: lexer.column}
}

func (lexer *Lexer) advance(n int) {
	lexer.pos += n
	lexer.column += n
}

// skipComment stops at the line break, so the line counter still sees it.
func (lexer *Lexer) skipComment() {
	for lexer.pos < len(lexer.src) && lexer.src[lexer.pos] != '\n' {
		lexer.advance(1)
	}
}

func (lexer *Lexer) scan(accept func(byte) bool) string {
	start := lexer.pos
	for lexer.pos < len(lexer.src) && accept(lexer.src[lexer.pos]) {
		lexer.advance(1)
	}
	return lexer.src[start:lexer.pos]
}

func (lexer *Lexer) tokenNumber() (Token, error) {
	pos := lexer.currentPos()
	text := lexer.scan(util.IsNumber)
	// 12abc is neither a number nor an identifier.
	if lexer.pos < len(lexer.src) && util.IsSymbolPart(lexer.src[lexer.pos]) {
		text += lexer.scan(util.IsSymbolPart)
		return Token{}, lexer.makeError(pos, text, "malformed integer")
	}
	value, err := strconv.Atoi(text)
	if err != nil || value > MaxInteger {
		return Token{}, lexer.makeError(pos, text, "integer out of range [0, 32767]")
	}
	return Token{Kind: IntegerToken, Text: text, Pos: pos}, nil
}

// ifGotoTail completes "if" into the if-goto keyword, the only word with a '-'.
const ifGotoTail = "-goto"

func (lexer *Lexer) tokenWord() Token {
	pos := lexer.currentPos()
	text := lexer.scan(util.IsSymbolPart)
	if text == "if" && strings.HasPrefix(lexer.src[lexer.pos:], ifGotoTail) {
		end := lexer.pos + len(ifGotoTail)
		if end == len(lexer.src) || !util.IsSymbolPart(lexer.src[end]) {
			lexer.advance(len(ifGotoTail))
			text += ifGotoTail
		}
	}
	if keywords[text] {
		return Token{Kind: KeywordToken, Text: text, Pos: pos}
	}
	return Token{Kind: IdentifierToken, Text: text, Pos: pos}
}

func (lexer *Lexer) makeError(pos Pos, text string, msg string) error {
	return &LexError{Pos: pos, Text: text, Msg: msg}
}

// Tokenize lexes the whole source, the returned tokens end with the EOF token.
func Tokenize(src string) ([]Token, error) {
	lexer := NewLexer(src)
	var tokens []Token
	for {
		token, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
		if token.Kind == EOFToken {
			return tokens, nil
		}
	}
}
