package emulator

import (
	"io"

	"github.com/pkg/errors"

	"nands/assembler"
)

// A hack cpu emulator. It executes the words produced by the assembler package over a 32K data memory, which is
// enough to run translated vm programs and inspect the stack afterwards.

const RAMSize = 32768

// ErrCycleLimit is returned when a run doesn't reach its stop condition within the given number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

type CPU struct {
	A      int16
	D      int16
	PC     int
	RAM    [RAMSize]int16
	ROM    []uint16
	Cycles int
}

func New(rom []uint16) *CPU {
	return &CPU{ROM: rom}
}

// Load assembles the hack assembler code in rd and returns a cpu ready to run it, along with the assembled
// program so callers can look label addresses up.
func Load(rd io.Reader) (*CPU, *assembler.Program, error) {
	program, err := assembler.Assemble(rd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load")
	}
	return New(program.Words()), program, nil
}

// Halted reports whether the pc went past the last instruction.
func (cpu *CPU) Halted() bool {
	return cpu.PC >= len(cpu.ROM)
}

// Step executes the instruction at pc.
func (cpu *CPU) Step() error {
	if cpu.PC < 0 || cpu.PC >= len(cpu.ROM) {
		return errors.Errorf("pc %d out of rom [0, %d)", cpu.PC, len(cpu.ROM))
	}
	word := cpu.ROM[cpu.PC]
	cpu.Cycles++
	// A instruction: 0vvv vvvv vvvv vvvv
	if word&0x8000 == 0 {
		cpu.A = int16(word)
		cpu.PC++
		return nil
	}
	// C instruction: 111a cccc ccdd djjj
	addr := cpu.A
	y := cpu.A
	if word&0x1000 != 0 {
		v, err := cpu.load(addr)
		if err != nil {
			return err
		}
		y = v
	}
	out := alu(cpu.D, y, (word>>6)&0x3f)
	if word&0x08 != 0 {
		if err := cpu.store(addr, out); err != nil {
			return err
		}
	}
	if word&0x10 != 0 {
		cpu.D = out
	}
	if word&0x20 != 0 {
		cpu.A = out
	}
	if jump(out, word&0x7) {
		cpu.PC = int(uint16(addr))
		return nil
	}
	cpu.PC++
	return nil
}

// Run executes until the cpu halts.
func (cpu *CPU) Run(maxCycles int) error {
	for i := 0; i < maxCycles; i++ {
		if cpu.Halted() {
			return nil
		}
		if err := cpu.Step(); err != nil {
			return err
		}
	}
	if cpu.Halted() {
		return nil
	}
	return ErrCycleLimit
}

// RunUntil executes until pc reaches `pc`, which is typically the address of a halt loop label.
func (cpu *CPU) RunUntil(pc int, maxCycles int) error {
	for i := 0; i < maxCycles; i++ {
		if cpu.PC == pc {
			return nil
		}
		if err := cpu.Step(); err != nil {
			return err
		}
	}
	if cpu.PC == pc {
		return nil
	}
	return ErrCycleLimit
}

func (cpu *CPU) load(addr int16) (int16, error) {
	if addr < 0 {
		return 0, errors.Errorf("read out of ram at address %d, pc %d", uint16(addr), cpu.PC)
	}
	return cpu.RAM[addr], nil
}

func (cpu *CPU) store(addr int16, v int16) error {
	if addr < 0 {
		return errors.Errorf("write out of ram at address %d, pc %d", uint16(addr), cpu.PC)
	}
	cpu.RAM[addr] = v
	return nil
}

// alu computes the hack alu output for the control bits zx nx zy ny f no.
func alu(x, y int16, control uint16) int16 {
	if control&0x20 != 0 {
		x = 0
	}
	if control&0x10 != 0 {
		x = ^x
	}
	if control&0x08 != 0 {
		y = 0
	}
	if control&0x04 != 0 {
		y = ^y
	}
	var out int16
	if control&0x02 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if control&0x01 != 0 {
		out = ^out
	}
	return out
}

func jump(out int16, bits uint16) bool {
	return (bits&0x4 != 0 && out < 0) || (bits&0x2 != 0 && out == 0) || (bits&0x1 != 0 && out > 0)
}
