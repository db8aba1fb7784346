package internal

import "fmt"

// Pos is a position in a vm source, both fields start at 1.
type Pos struct {
	Line   int
	Column int
}

func (pos Pos) String() string {
	return fmt.Sprintf("line %d, column %d", pos.Line, pos.Column)
}

func (pos Pos) Position() Pos {
	return pos
}

// LexError is returned when a character sequence matches no token.
type LexError struct {
	Pos  Pos
	Text string
	Msg  string
}

func (err *LexError) Error() string {
	return fmt.Sprintf("LexError: %s near %q at %s", err.Msg, err.Text, err.Pos)
}

// ParseError is returned when a command doesn't have the operands its keyword requires.
type ParseError struct {
	Pos      Pos
	Expected string
	Found    string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("ParseError: expected %s but found %s at %s", err.Expected, err.Found, err.Pos)
}

// ScopeError is returned when flow control or return is used outside of a function.
type ScopeError struct {
	Pos     Pos
	Command string
}

func (err *ScopeError) Error() string {
	return fmt.Sprintf("ScopeError: %q used outside of a function at %s", err.Command, err.Pos)
}

// SegmentError is returned when an index is out of its segment's range, or the segment can't be written.
type SegmentError struct {
	Pos     Pos
	Segment Segment
	Index   int
	Msg     string
}

func (err *SegmentError) Error() string {
	return fmt.Sprintf("SegmentError: %s %d: %s at %s", err.Segment, err.Index, err.Msg, err.Pos)
}
