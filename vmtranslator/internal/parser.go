package internal

import (
	"io"
	"strconv"
)

// Parser turns the token stream of a Lexer into commands, one command per source line. Every operand must be on
// the same line as its keyword, and nothing else may follow on that line.
type Parser struct {
	lexer  *Lexer
	peeked *Token
}

func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

func (parser *Parser) peek() (Token, error) {
	if parser.peeked != nil {
		return *parser.peeked, nil
	}
	token, err := parser.lexer.Next()
	if err != nil {
		return Token{}, err
	}
	parser.peeked = &token
	return token, nil
}

func (parser *Parser) next() (Token, error) {
	token, err := parser.peek()
	parser.peeked = nil
	return token, err
}

// Next returns the next command, or io.EOF once the source is exhausted.
func (parser *Parser) Next() (Command, error) {
	token, err := parser.next()
	if err != nil {
		return nil, err
	}
	if token.Kind == EOFToken {
		return nil, io.EOF
	}
	if token.Kind != KeywordToken {
		return nil, parser.makeError(token.Pos, "a command keyword", token.String())
	}
	cmd, err := parser.parseCommand(token)
	if err != nil {
		return nil, err
	}
	if err := parser.expectEndOfLine(token.Pos); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (parser *Parser) parseCommand(keyword Token) (Command, error) {
	pos := keyword.Pos
	if op, ok := opsByName[keyword.Text]; ok {
		return Arithmetic{Pos: pos, Op: op}, nil
	}
	switch keyword.Text {
	case "push":
		return parser.parseMemoryAccess(pos, Push)
	case "pop":
		return parser.parseMemoryAccess(pos, Pop)
	case "label":
		name, err := parser.expectIdentifier(pos, "a label name")
		return Label{Pos: pos, Name: name}, err
	case "goto":
		name, err := parser.expectIdentifier(pos, "a label name")
		return Goto{Pos: pos, Name: name}, err
	case "if-goto":
		name, err := parser.expectIdentifier(pos, "a label name")
		return IfGoto{Pos: pos, Name: name}, err
	case "function":
		name, count, err := parser.parseNameAndCount(pos, "local variables count")
		return Function{Pos: pos, Name: name, Locals: count}, err
	case "call":
		name, count, err := parser.parseNameAndCount(pos, "arguments count")
		return Call{Pos: pos, Name: name, Args: count}, err
	case "return":
		return Return{Pos: pos}, nil
	}
	return nil, parser.makeError(pos, "a command keyword", keyword.String())
}

// parseMemoryAccess parses `segment index` after push or pop.
func (parser *Parser) parseMemoryAccess(pos Pos, direction Direction) (Command, error) {
	token, err := parser.expectOnLine(pos, "a segment")
	if err != nil {
		return nil, err
	}
	segment, ok := segmentsByName[token.Text]
	if token.Kind != KeywordToken || !ok {
		return nil, parser.makeError(token.Pos, "a segment", token.String())
	}
	if segment == SegmentConstant && direction == Pop {
		return nil, parser.makeError(token.Pos, "a writable segment", "pop constant")
	}
	index, err := parser.expectInteger(pos, "a segment index")
	if err != nil {
		return nil, err
	}
	if err := checkAccess(pos, direction, segment, index); err != nil {
		return nil, err
	}
	return MemoryAccess{Pos: pos, Direction: direction, Segment: segment, Index: index}, nil
}

func (parser *Parser) parseNameAndCount(pos Pos, countName string) (string, int, error) {
	name, err := parser.expectIdentifier(pos, "a function name")
	if err != nil {
		return "", 0, err
	}
	count, err := parser.expectInteger(pos, countName)
	if err != nil {
		return "", 0, err
	}
	return name, count, nil
}

// expectOnLine consumes the next token if it's on the line of pos.
func (parser *Parser) expectOnLine(pos Pos, expected string) (Token, error) {
	token, err := parser.peek()
	if err != nil {
		return Token{}, err
	}
	if token.Kind == EOFToken || token.Pos.Line != pos.Line {
		return Token{}, parser.makeError(pos, expected, "end of line")
	}
	return parser.next()
}

func (parser *Parser) expectIdentifier(pos Pos, expected string) (string, error) {
	token, err := parser.expectOnLine(pos, expected)
	if err != nil {
		return "", err
	}
	if token.Kind != IdentifierToken {
		return "", parser.makeError(token.Pos, expected, token.String())
	}
	return token.Text, nil
}

func (parser *Parser) expectInteger(pos Pos, expected string) (int, error) {
	token, err := parser.expectOnLine(pos, expected)
	if err != nil {
		return 0, err
	}
	if token.Kind != IntegerToken {
		return 0, parser.makeError(token.Pos, expected, token.String())
	}
	value, err := strconv.Atoi(token.Text)
	if err != nil {
		return 0, parser.makeError(token.Pos, expected, token.String())
	}
	return value, nil
}

func (parser *Parser) expectEndOfLine(pos Pos) error {
	token, err := parser.peek()
	if err != nil {
		return err
	}
	if token.Kind != EOFToken && token.Pos.Line == pos.Line {
		return parser.makeError(token.Pos, "end of line", token.String())
	}
	return nil
}

func (parser *Parser) makeError(pos Pos, expected, found string) error {
	return &ParseError{Pos: pos, Expected: expected, Found: found}
}

// Parse parses a whole vm source.
func Parse(src string) ([]Command, error) {
	parser := NewParser(NewLexer(src))
	var commands []Command
	for {
		cmd, err := parser.Next()
		if err == io.EOF {
			return commands, nil
		}
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
}
