package internal

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// The hack memory layout the generated code relies on:
// RAM[0] SP, RAM[1] LCL, RAM[2] ARG, RAM[3] THIS, RAM[4] THAT, RAM[5-12] temp segment,
// RAM[13-15] general purpose registers, the translator uses R13 and R14 as scratch.
// The stack pointer always addresses the next free slot.

const (
	TempBase = 5
	// frameSize is the number of words a call pushes: return address, LCL, ARG, THIS, THAT.
	frameSize = 5
)

var segmentRegisters = map[Segment]string{
	SegmentLocal:    "LCL",
	SegmentArgument: "ARG",
	SegmentThis:     "THIS",
	SegmentThat:     "THAT",
}

// code collects the lines emitted for one command.
type code []string

func (c *code) emit(lines ...string) {
	*c = append(*c, lines...)
}

// pushD pushes the D register: *SP=D, SP=SP+1.
func (c *code) pushD() {
	c.emit("@SP", "A=M", "M=D", "@SP", "M=M+1")
}

// popD pops into the D register: SP=SP-1, D=*SP. A is left pointing at the popped slot.
func (c *code) popD() {
	c.emit("@SP", "AM=M-1", "D=M")
}

// Translate returns the hack assembler lines implementing cmd, and the context for the next command.
func Translate(cmd Command, ctx Context) ([]string, Context, error) {
	var c code
	var err error
	switch cmd := cmd.(type) {
	case Arithmetic:
		ctx, err = translateArithmetic(&c, cmd, ctx)
	case MemoryAccess:
		err = translateMemoryAccess(&c, cmd, ctx)
	case Label:
		err = translateLabel(&c, cmd, ctx)
	case Goto:
		err = translateGoto(&c, cmd, ctx)
	case IfGoto:
		err = translateIfGoto(&c, cmd, ctx)
	case Function:
		ctx = translateFunction(&c, cmd, ctx)
	case Call:
		ctx = translateCall(&c, cmd, ctx)
	case Return:
		err = translateReturn(&c, cmd, ctx)
	default:
		err = errors.Errorf("unknown command %T", cmd)
	}
	if err != nil {
		return nil, ctx, err
	}
	return c, ctx, nil
}

// TranslateAll folds Translate over commands. It stops at the first error and returns no lines in that case.
func TranslateAll(commands []Command, ctx Context) ([]string, Context, error) {
	var lines []string
	for _, cmd := range commands {
		out, next, err := Translate(cmd, ctx)
		if err != nil {
			return nil, ctx, err
		}
		lines = append(lines, out...)
		ctx = next
	}
	return lines, ctx, nil
}

// Binary operators take the second popped value as the left operand: x op y where y is on top.
var binaryComps = map[Op]string{
	OpAdd: "M=M+D",
	OpSub: "M=M-D",
	OpAnd: "M=M&D",
	OpOr:  "M=M|D",
}

var unaryComps = map[Op]string{
	OpNeg: "M=-M",
	OpNot: "M=!M",
}

var comparisonJumps = map[Op]string{
	OpEq: "JEQ",
	OpGt: "JGT",
	OpLt: "JLT",
}

func translateArithmetic(c *code, cmd Arithmetic, ctx Context) (Context, error) {
	if comp, ok := binaryComps[cmd.Op]; ok {
		c.popD()
		c.emit("A=A-1", comp)
		return ctx, nil
	}
	if comp, ok := unaryComps[cmd.Op]; ok {
		c.emit("@SP", "A=M-1", comp)
		return ctx, nil
	}
	jump, ok := comparisonJumps[cmd.Op]
	if !ok {
		return ctx, errors.Errorf("unknown arithmetic op %d at %s", int(cmd.Op), cmd.Pos)
	}
	// The target has no local labels, every comparison gets its own pair.
	ctx.Comparisons++
	trueLabel := fmt.Sprintf("$cmp.true.%d", ctx.Comparisons)
	endLabel := fmt.Sprintf("$cmp.end.%d", ctx.Comparisons)
	c.popD()
	c.emit(
		"A=A-1",
		"D=M-D", // D = x - y
		"@"+trueLabel,
		"D;"+jump,
		"@SP",
		"A=M-1",
		"M=0",
		"@"+endLabel,
		"0;JMP",
		"("+trueLabel+")",
		"@SP",
		"A=M-1",
		"M=-1",
		"("+endLabel+")",
	)
	return ctx, nil
}

func translateMemoryAccess(c *code, cmd MemoryAccess, ctx Context) error {
	if err := checkAccess(cmd.Pos, cmd.Direction, cmd.Segment, cmd.Index); err != nil {
		return err
	}
	if cmd.Direction == Push {
		pushSegment(c, cmd.Segment, cmd.Index, ctx)
		return nil
	}
	popSegment(c, cmd.Segment, cmd.Index, ctx)
	return nil
}

// directAddress returns the symbol or address of the cell for the segments that don't go through a base
// register, and false for the others.
func directAddress(segment Segment, index int, ctx Context) (string, bool) {
	switch segment {
	case SegmentTemp:
		return strconv.Itoa(TempBase + index), true
	case SegmentPointer:
		if index == 0 {
			return "THIS", true
		}
		return "THAT", true
	case SegmentStatic:
		return fmt.Sprintf("%s.%d", ctx.Unit, index), true
	}
	return "", false
}

func pushSegment(c *code, segment Segment, index int, ctx Context) {
	if segment == SegmentConstant {
		c.emit("@"+strconv.Itoa(index), "D=A")
		c.pushD()
		return
	}
	if addr, ok := directAddress(segment, index, ctx); ok {
		c.emit("@"+addr, "D=M")
		c.pushD()
		return
	}
	c.emit(
		"@"+segmentRegisters[segment],
		"D=M",
		"@"+strconv.Itoa(index),
		"A=D+A",
		"D=M",
	)
	c.pushD()
}

func popSegment(c *code, segment Segment, index int, ctx Context) {
	if addr, ok := directAddress(segment, index, ctx); ok {
		c.popD()
		c.emit("@"+addr, "M=D")
		return
	}
	// The target address is computed first and parked in R13, popping needs the D register.
	c.emit(
		"@"+segmentRegisters[segment],
		"D=M",
		"@"+strconv.Itoa(index),
		"D=D+A",
		"@R13",
		"M=D",
	)
	c.popD()
	c.emit("@R13", "A=M", "M=D")
}

// flowLabel qualifies a vm label with its enclosing function, so functions can reuse label names.
func flowLabel(cmd Command, name string, ctx Context) (string, error) {
	if ctx.Function == "" {
		return "", &ScopeError{Pos: cmd.Position(), Command: cmd.String()}
	}
	return ctx.Function + "$" + name, nil
}

func translateLabel(c *code, cmd Label, ctx Context) error {
	label, err := flowLabel(cmd, cmd.Name, ctx)
	if err != nil {
		return err
	}
	c.emit("(" + label + ")")
	return nil
}

func translateGoto(c *code, cmd Goto, ctx Context) error {
	label, err := flowLabel(cmd, cmd.Name, ctx)
	if err != nil {
		return err
	}
	c.emit("@"+label, "0;JMP")
	return nil
}

// translateIfGoto pops the top of the stack and jumps if it's not zero.
func translateIfGoto(c *code, cmd IfGoto, ctx Context) error {
	label, err := flowLabel(cmd, cmd.Name, ctx)
	if err != nil {
		return err
	}
	c.popD()
	c.emit("@"+label, "D;JNE")
	return nil
}

// translateFunction declares the function label and pushes 0 once per local, which both clears the locals and
// moves SP past them.
func translateFunction(c *code, cmd Function, ctx Context) Context {
	ctx.Function = cmd.Name
	c.emit("(" + cmd.Name + ")")
	for i := 0; i < cmd.Locals; i++ {
		c.emit("@SP", "A=M", "M=0", "@SP", "M=M+1")
	}
	return ctx
}

// translateCall saves the caller frame and jumps to the callee:
// push return-address, push LCL, push ARG, push THIS, push THAT,
// ARG=SP-5-n, LCL=SP, goto f, (return-address).
func translateCall(c *code, cmd Call, ctx Context) Context {
	ctx.CallSites++
	// Two '$' keep it apart from flow labels, vm names can't contain one.
	returnLabel := fmt.Sprintf("%s$ret$%d", ctx.scope(), ctx.CallSites)
	c.emit("@"+returnLabel, "D=A")
	c.pushD()
	for _, register := range []string{"LCL", "ARG", "THIS", "THAT"} {
		c.emit("@"+register, "D=M")
		c.pushD()
	}
	c.emit(
		"@SP",
		"D=M",
		"@"+strconv.Itoa(frameSize+cmd.Args),
		"D=D-A",
		"@ARG",
		"M=D",
		"@SP",
		"D=M",
		"@LCL",
		"M=D",
		"@"+cmd.Name,
		"0;JMP",
		"("+returnLabel+")",
	)
	return ctx
}

// translateReturn restores the caller frame:
// frame=LCL, ret=*(frame-5), *ARG=pop(), SP=ARG+1,
// THAT=*(frame-1), THIS=*(frame-2), ARG=*(frame-3), LCL=*(frame-4), goto ret.
// The return address is read before *ARG is written, they are the same cell when the callee has no arguments.
func translateReturn(c *code, cmd Return, ctx Context) error {
	if ctx.Function == "" {
		return &ScopeError{Pos: cmd.Pos, Command: cmd.String()}
	}
	c.emit(
		"@LCL",
		"D=M",
		"@R13",
		"M=D", // frame
		"@"+strconv.Itoa(frameSize),
		"A=D-A",
		"D=M",
		"@R14",
		"M=D", // return address
	)
	c.popD()
	c.emit(
		"@ARG",
		"A=M",
		"M=D",
		"@ARG",
		"D=M+1",
		"@SP",
		"M=D",
	)
	for _, register := range []string{"THAT", "THIS", "ARG", "LCL"} {
		c.emit("@R13", "AM=M-1", "D=M", "@"+register, "M=D")
	}
	c.emit("@R14", "A=M", "0;JMP")
	return nil
}
