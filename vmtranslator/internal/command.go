package internal

import "fmt"

// There are four kinds of vm commands:
// * Arithmetic commands: add, sub, neg, eq, gt, lt, and, or, not.
// * Memory access commands: push|pop segment index.
// * Program flow commands: label name, goto name, if-goto name.
// * Function calling commands: function f k, call f n, return.
//
// Command is a closed set, the translator switches over every implementation below.

type Command interface {
	Position() Pos
	String() string
	command()
}

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpNeg
	OpEq
	OpGt
	OpLt
	OpAnd
	OpOr
	OpNot
)

var opNames = map[Op]string{
	OpAdd: "add",
	OpSub: "sub",
	OpNeg: "neg",
	OpEq:  "eq",
	OpGt:  "gt",
	OpLt:  "lt",
	OpAnd: "and",
	OpOr:  "or",
	OpNot: "not",
}

var opsByName = map[string]Op{}

func (op Op) String() string {
	return opNames[op]
}

type Direction int

const (
	Push Direction = iota
	Pop
)

func (direction Direction) String() string {
	if direction == Push {
		return "push"
	}
	return "pop"
}

type Segment int

const (
	SegmentConstant Segment = iota
	SegmentLocal
	SegmentArgument
	SegmentThis
	SegmentThat
	SegmentTemp
	SegmentPointer
	SegmentStatic
)

var segmentNames = map[Segment]string{
	SegmentConstant: "constant",
	SegmentLocal:    "local",
	SegmentArgument: "argument",
	SegmentThis:     "this",
	SegmentThat:     "that",
	SegmentTemp:     "temp",
	SegmentPointer:  "pointer",
	SegmentStatic:   "static",
}

var segmentsByName = map[string]Segment{}

func init() {
	for op, name := range opNames {
		opsByName[name] = op
	}
	for segment, name := range segmentNames {
		segmentsByName[name] = segment
	}
}

func (segment Segment) String() string {
	if name, ok := segmentNames[segment]; ok {
		return name
	}
	return fmt.Sprintf("segment(%d)", int(segment))
}

// Segment sizes for the segments with a fixed range.
const (
	TempSize    = 8
	PointerSize = 2
)

// checkAccess validates a memory access independently of where the command came from.
func checkAccess(pos Pos, direction Direction, segment Segment, index int) error {
	if _, ok := segmentNames[segment]; !ok {
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "unknown segment"}
	}
	if index < 0 {
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "negative index"}
	}
	switch {
	case segment == SegmentConstant && direction == Pop:
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "constant segment can't be popped into"}
	case segment == SegmentConstant && index > MaxInteger:
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "constant out of range [0, 32767]"}
	case segment == SegmentTemp && index >= TempSize:
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "index out of range [0, 7]"}
	case segment == SegmentPointer && index >= PointerSize:
		return &SegmentError{Pos: pos, Segment: segment, Index: index, Msg: "index out of range [0, 1]"}
	}
	return nil
}

type Arithmetic struct {
	Pos
	Op Op
}

type MemoryAccess struct {
	Pos
	Direction Direction
	Segment   Segment
	Index     int
}

type Label struct {
	Pos
	Name string
}

type Goto struct {
	Pos
	Name string
}

type IfGoto struct {
	Pos
	Name string
}

type Function struct {
	Pos
	Name   string
	Locals int
}

type Call struct {
	Pos
	Name string
	Args int
}

type Return struct {
	Pos
}

func (cmd Arithmetic) command()   {}
func (cmd MemoryAccess) command() {}
func (cmd Label) command()        {}
func (cmd Goto) command()         {}
func (cmd IfGoto) command()       {}
func (cmd Function) command()     {}
func (cmd Call) command()         {}
func (cmd Return) command()       {}

func (cmd Arithmetic) String() string {
	return cmd.Op.String()
}

func (cmd MemoryAccess) String() string {
	return fmt.Sprintf("%s %s %d", cmd.Direction, cmd.Segment, cmd.Index)
}

func (cmd Label) String() string {
	return "label " + cmd.Name
}

func (cmd Goto) String() string {
	return "goto " + cmd.Name
}

func (cmd IfGoto) String() string {
	return "if-goto " + cmd.Name
}

func (cmd Function) String() string {
	return fmt.Sprintf("function %s %d", cmd.Name, cmd.Locals)
}

func (cmd Call) String() string {
	return fmt.Sprintf("call %s %d", cmd.Name, cmd.Args)
}

func (cmd Return) String() string {
	return "return"
}
