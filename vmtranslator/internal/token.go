package internal

import "fmt"

type TokenKind int

const (
	KeywordToken TokenKind = iota
	IdentifierToken
	IntegerToken
	EOFToken
)

var tokenKindNames = map[TokenKind]string{
	KeywordToken:    "keyword",
	IdentifierToken: "identifier",
	IntegerToken:    "integer",
	EOFToken:        "end of input",
}

func (kind TokenKind) String() string {
	return tokenKindNames[kind]
}

// keywords are the reserved words of the vm language.
var keywords = map[string]bool{
	"push":     true,
	"pop":      true,
	"add":      true,
	"sub":      true,
	"neg":      true,
	"eq":       true,
	"gt":       true,
	"lt":       true,
	"and":      true,
	"or":       true,
	"not":      true,
	"argument": true,
	"local":    true,
	"static":   true,
	"constant": true,
	"this":     true,
	"that":     true,
	"pointer":  true,
	"temp":     true,
	"label":    true,
	"goto":     true,
	"if-goto":  true,
	"function": true,
	"call":     true,
	"return":   true,
}

type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

func (token Token) String() string {
	if token.Kind == EOFToken {
		return token.Kind.String()
	}
	return fmt.Sprintf("%s %q", token.Kind, token.Text)
}
