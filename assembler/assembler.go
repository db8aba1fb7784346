package assembler

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"nands/util"
)

// A simple two pass assembler for the hack machine. The vm translator emits hack assembler code, this package turns
// that code into the 16 bits words the hack cpu executes, which is what the emulator package runs in tests.

// An A instruction is written as @something and has several forms:
// * @10, a decimal value in [0, 32767] loaded into the A register.
// * @label, the instruction address of a label, which can be used before it is declared.
// * @R0-@R15, SP, LCL, ARG, THIS, THAT, SCREEN, KBD, predefined data memory addresses.
// * @variable, any other symbol. Variables get data memory addresses from 16 upwards in order of first use.

const (
	MaxConstant      = 32767
	VariableBaseAddr = 16
)

var predefinedSymbols = map[string]int{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"R0":     0,
	"R1":     1,
	"R2":     2,
	"R3":     3,
	"R4":     4,
	"R5":     5,
	"R6":     6,
	"R7":     7,
	"R8":     8,
	"R9":     9,
	"R10":    10,
	"R11":    11,
	"R12":    12,
	"R13":    13,
	"R14":    14,
	"R15":    15,
	"SCREEN": 16384,
	"KBD":    24576,
}

// compCodes holds the a bit and c1..c6 for every computation, already shifted into place.
var compCodes = map[string]uint16{
	"0":   0b0101010 << 6,
	"1":   0b0111111 << 6,
	"-1":  0b0111010 << 6,
	"D":   0b0001100 << 6,
	"A":   0b0110000 << 6,
	"!D":  0b0001101 << 6,
	"!A":  0b0110001 << 6,
	"-D":  0b0001111 << 6,
	"-A":  0b0110011 << 6,
	"D+1": 0b0011111 << 6,
	"1+D": 0b0011111 << 6,
	"A+1": 0b0110111 << 6,
	"1+A": 0b0110111 << 6,
	"D-1": 0b0001110 << 6,
	"A-1": 0b0110010 << 6,
	"D+A": 0b0000010 << 6,
	"A+D": 0b0000010 << 6,
	"D-A": 0b0010011 << 6,
	"A-D": 0b0000111 << 6,
	"D&A": 0b0000000 << 6,
	"A&D": 0b0000000 << 6,
	"D|A": 0b0010101 << 6,
	"A|D": 0b0010101 << 6,
	"M":   0b1110000 << 6,
	"!M":  0b1110001 << 6,
	"-M":  0b1110011 << 6,
	"M+1": 0b1110111 << 6,
	"1+M": 0b1110111 << 6,
	"M-1": 0b1110010 << 6,
	"D+M": 0b1000010 << 6,
	"M+D": 0b1000010 << 6,
	"D-M": 0b1010011 << 6,
	"M-D": 0b1000111 << 6,
	"D&M": 0b1000000 << 6,
	"M&D": 0b1000000 << 6,
	"D|M": 0b1010101 << 6,
	"M|D": 0b1010101 << 6,
}

var destCodes = map[string]uint16{
	"M":   0b001 << 3,
	"D":   0b010 << 3,
	"MD":  0b011 << 3,
	"DM":  0b011 << 3,
	"A":   0b100 << 3,
	"AM":  0b101 << 3,
	"MA":  0b101 << 3,
	"AD":  0b110 << 3,
	"DA":  0b110 << 3,
	"AMD": 0b111 << 3,
	"ADM": 0b111 << 3,
	"DAM": 0b111 << 3,
	"DMA": 0b111 << 3,
	"MAD": 0b111 << 3,
	"MDA": 0b111 << 3,
}

var jumpCodes = map[string]uint16{
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

// cInstructionPrefix marks a C instruction: 111a cccc ccdd djjj.
const cInstructionPrefix = 0b111 << 13

type CommandType int

const (
	ACommandConstant CommandType = iota
	ACommandLabel
	ACommandVariable
	CCommand
)

// Command is one assembled instruction together with the source line it came from.
type Command struct {
	Tp     CommandType
	Word   uint16
	Line   int
	Source string
	symbol string
}

func (command Command) String() string {
	return fmt.Sprintf("Command: {Tp: %d, Code: %s, Line: %d, Source: %s}", command.Tp, FormatWord(command.Word),
		command.Line, command.Source)
}

// Program is the result of assembling a source: the instruction words and every resolved symbol.
type Program struct {
	Commands []Command
	Labels   map[string]int
	Vars     map[string]int
}

// Words returns the instruction memory image.
func (program *Program) Words() []uint16 {
	words := make([]uint16, len(program.Commands))
	for i, command := range program.Commands {
		words[i] = command.Word
	}
	return words
}

// WriteHack writes the program in the textual .hack format, one 16 characters binary word per line.
func (program *Program) WriteHack(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, command := range program.Commands {
		if _, err := bw.WriteString(FormatWord(command.Word) + "\n"); err != nil {
			return errors.Wrap(err, "write hack")
		}
	}
	return errors.Wrap(bw.Flush(), "write hack")
}

// SaveHack writes the .hack text to the file at path, replacing its content. A failed close is reported, it
// may hide a failed write.
func (program *Program) SaveHack(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "save to %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "save to %s", path)
		}
	}()
	return errors.Wrapf(program.WriteHack(f), "save to %s", path)
}

type Assembler struct {
	line           int
	instructionPos int
	nextVariable   int
	labels         map[string]int
	commands       []Command
}

func NewAssembler() *Assembler {
	return &Assembler{
		line:         1,
		nextVariable: VariableBaseAddr,
		labels:       map[string]int{},
	}
}

// Assemble is a shortcut for NewAssembler().Parse(rd).
func Assemble(rd io.Reader) (*Program, error) {
	return NewAssembler().Parse(rd)
}

// Parse reads hack assembler code from rd line by line, then resolves all label and variable references once
// every label declaration has been seen.
func (asm *Assembler) Parse(rd io.Reader) (*Program, error) {
	bfReader := bufio.NewReader(rd)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "read assembler source")
		}
		if trimmed, ok := asm.trimLine(line); ok {
			if tErr := asm.transformLine(trimmed); tErr != nil {
				return nil, tErr
			}
		}
		asm.line++
		if err == io.EOF {
			break
		}
	}
	return asm.resolveSymbols(), nil
}

// resolveSymbols is the second pass. A symbol is a label reference if a label of that name was declared anywhere,
// otherwise it's a variable.
func (asm *Assembler) resolveSymbols() *Program {
	vars := map[string]int{}
	for i := range asm.commands {
		command := &asm.commands[i]
		if command.Tp != ACommandLabel {
			continue
		}
		if addr, exist := asm.labels[command.symbol]; exist {
			command.Word = uint16(addr)
			continue
		}
		addr, exist := vars[command.symbol]
		if !exist {
			addr = asm.nextVariable
			vars[command.symbol] = addr
			asm.nextVariable++
		}
		command.Tp = ACommandVariable
		command.Word = uint16(addr)
	}
	return &Program{Commands: asm.commands, Labels: asm.labels, Vars: vars}
}

// trimLine removes spaces and a trailing comment and reports whether anything is left.
func (asm *Assembler) trimLine(line []byte) ([]byte, bool) {
	if index := bytes.Index(line, []byte("//")); index != -1 {
		line = line[:index]
	}
	line = bytes.TrimSpace(line)
	return line, len(line) > 0
}

func (asm *Assembler) transformLine(line []byte) error {
	switch line[0] {
	case '@':
		return asm.transformACommand(line)
	case '(':
		return asm.transformLabelCommand(line)
	default:
		return asm.transformCCommand(line)
	}
}

func (asm *Assembler) transformACommand(line []byte) error {
	source := string(line)
	operand := string(line[1:])
	if len(operand) == 0 {
		return asm.makeSyntaxErr("missing A command operand")
	}
	if util.IsNumber(operand[0]) {
		value, err := strconv.Atoi(operand)
		if err != nil || value > MaxConstant {
			return asm.makeSyntaxErr(fmt.Sprintf("wrong decimal value %s", operand))
		}
		asm.appendCommand(Command{Tp: ACommandConstant, Word: uint16(value), Source: source})
		return nil
	}
	if addr, exist := predefinedSymbols[operand]; exist {
		asm.appendCommand(Command{Tp: ACommandVariable, Word: uint16(addr), Source: source})
		return nil
	}
	if !util.IsAsmSymbol(operand) {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong variable or label format %s", operand))
	}
	// Placeholder until every label is known.
	asm.appendCommand(Command{Tp: ACommandLabel, Source: source, symbol: operand})
	return nil
}

// transformLabelCommand records the address of the next instruction under the label name. A label declaration
// doesn't produce an instruction.
func (asm *Assembler) transformLabelCommand(line []byte) error {
	if line[len(line)-1] != ')' {
		return asm.makeSyntaxErr("wrong label format")
	}
	label := string(line[1 : len(line)-1])
	if !util.IsAsmSymbol(label) {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong label format %s", label))
	}
	if _, exist := asm.labels[label]; exist {
		return asm.makeSyntaxErr(fmt.Sprintf("found duplicate label %s", label))
	}
	if _, exist := predefinedSymbols[label]; exist {
		return asm.makeSyntaxErr(fmt.Sprintf("label %s shadows a predefined symbol", label))
	}
	asm.labels[label] = asm.instructionPos
	return nil
}

// transformCCommand parses dest=comp;jump where dest and jump are optional.
func (asm *Assembler) transformCCommand(line []byte) error {
	source := string(line)
	dest, line, err := asm.parseDest(line)
	if err != nil {
		return err
	}
	jump, line, err := asm.parseJump(line)
	if err != nil {
		return err
	}
	comp, exist := compCodes[string(line)]
	if !exist {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong c command of comp code format near %s", source))
	}
	asm.appendCommand(Command{Tp: CCommand, Word: cInstructionPrefix | comp | dest | jump, Source: source})
	return nil
}

func (asm *Assembler) parseDest(line []byte) (uint16, []byte, error) {
	index := bytes.IndexByte(line, '=')
	if index == -1 {
		return 0, line, nil
	}
	code, exist := destCodes[string(line[:index])]
	if !exist {
		return 0, nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of dest code format near %s", string(line)))
	}
	return code, line[index+1:], nil
}

func (asm *Assembler) parseJump(line []byte) (uint16, []byte, error) {
	index := bytes.IndexByte(line, ';')
	if index == -1 {
		return 0, line, nil
	}
	code, exist := jumpCodes[string(line[index+1:])]
	if !exist {
		return 0, nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of jump code format near %s", string(line)))
	}
	return code, line[:index], nil
}

func (asm *Assembler) appendCommand(command Command) {
	command.Line = asm.line
	asm.commands = append(asm.commands, command)
	asm.instructionPos++
}

func (asm *Assembler) makeSyntaxErr(msg string) error {
	return errors.Errorf("syntax err at line %d: %s", asm.line, msg)
}

// FormatWord renders a word as 16 binary digits.
func FormatWord(word uint16) string {
	return fmt.Sprintf("%016b", word)
}
