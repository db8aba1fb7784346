package internal

import (
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nands/emulator"
)

const (
	testHalt      = "$test.halt"
	testMaxCycles = 200000
)

// ram is an initial data memory content, address to value.
type ram map[int]int16

func mustParse(t *testing.T, src string) []Command {
	commands, err := Parse(src)
	require.Nil(t, err, src)
	return commands
}

// execute translates main, then a halt loop, then functions, all with one context, and runs the result until
// the halt loop is reached.
func execute(t *testing.T, setup ram, main string, functions string) (*emulator.CPU, []string) {
	ctx := NewContext().EnterUnit("Test")
	lines, ctx, err := TranslateAll(mustParse(t, main), ctx)
	require.Nil(t, err)
	lines = append(lines, "("+testHalt+")", "@"+testHalt, "0;JMP")
	fnLines, _, err := TranslateAll(mustParse(t, functions), ctx)
	require.Nil(t, err)
	lines = append(lines, fnLines...)
	return run(t, setup, lines), lines
}

func run(t *testing.T, setup ram, lines []string) *emulator.CPU {
	cpu, program, err := emulator.Load(strings.NewReader(strings.Join(lines, "\n")))
	require.Nil(t, err)
	for addr, v := range setup {
		cpu.RAM[addr] = v
	}
	halt, ok := program.Labels[testHalt]
	require.True(t, ok)
	require.Nil(t, cpu.RunUntil(halt, testMaxCycles))
	return cpu
}

// declaredLabels returns every (label) line of the output.
func declaredLabels(lines []string) []string {
	var labels []string
	for _, line := range lines {
		if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
			labels = append(labels, line[1:len(line)-1])
		}
	}
	return labels
}

func assertUnique(t *testing.T, labels []string) {
	seen := map[string]bool{}
	for _, label := range labels {
		assert.False(t, seen[label], "duplicate label %s", label)
		seen[label] = true
	}
}

func TestTranslate_AddScenario(t *testing.T) {
	cpu, _ := execute(t, ram{0: 256}, "push constant 7\npush constant 8\nadd", "")
	assert.Equal(t, int16(257), cpu.RAM[0])
	assert.Equal(t, int16(15), cpu.RAM[256])
}

func TestTranslate_Arithmetic(t *testing.T) {
	testData := []struct {
		op     string
		x, y   int16
		result int16
		depth  int16
	}{
		{op: "add", x: 12, y: 30, result: 42, depth: -1},
		{op: "add", x: 32767, y: 1, result: -32768, depth: -1},
		{op: "sub", x: 12, y: 30, result: -18, depth: -1},
		{op: "and", x: 0b1100, y: 0b1010, result: 0b1000, depth: -1},
		{op: "or", x: 0b1100, y: 0b1010, result: 0b1110, depth: -1},
		{op: "eq", x: 5, y: 5, result: -1, depth: -1},
		{op: "eq", x: 5, y: 6, result: 0, depth: -1},
		{op: "gt", x: 6, y: 5, result: -1, depth: -1},
		{op: "gt", x: 5, y: 5, result: 0, depth: -1},
		{op: "gt", x: -3, y: 5, result: 0, depth: -1},
		{op: "lt", x: -3, y: 5, result: -1, depth: -1},
		{op: "lt", x: 5, y: 5, result: 0, depth: -1},
		{op: "neg", x: 12, y: 30, result: -30, depth: 0},
		{op: "not", x: 12, y: 0, result: -1, depth: 0},
		{op: "not", x: 12, y: -1, result: 0, depth: 0},
	}
	for _, data := range testData {
		cpu, _ := execute(t, ram{0: 258, 256: data.x, 257: data.y}, data.op, "")
		sp := cpu.RAM[0]
		assert.Equal(t, 258+data.depth, sp, "%s %d %d", data.op, data.x, data.y)
		assert.Equal(t, data.result, cpu.RAM[sp-1], "%s %d %d", data.op, data.x, data.y)
		// The value below the operands is untouched.
		if data.depth == 0 {
			assert.Equal(t, data.x, cpu.RAM[256], data.op)
		}
	}
}

func TestTranslate_PushPopDepth(t *testing.T) {
	setup := ram{0: 300, 1: 400, 2: 500, 3: 600, 4: 700, 299: 9}
	for _, segment := range []string{"constant", "local", "argument", "this", "that", "temp", "pointer", "static"} {
		cpu, _ := execute(t, setup, "push "+segment+" 1", "")
		assert.Equal(t, int16(301), cpu.RAM[0], "push %s", segment)
		if segment == "constant" {
			continue
		}
		cpu, _ = execute(t, setup, "pop "+segment+" 1", "")
		assert.Equal(t, int16(299), cpu.RAM[0], "pop %s", segment)
	}
}

func TestTranslate_SegmentAddresses(t *testing.T) {
	setup := ram{0: 256, 1: 400, 2: 500, 3: 3000, 4: 3010}
	testData := []struct {
		segment string
		index   int
		addr    int
	}{
		{segment: "local", index: 0, addr: 400},
		{segment: "local", index: 3, addr: 403},
		{segment: "argument", index: 2, addr: 502},
		{segment: "this", index: 6, addr: 3006},
		{segment: "that", index: 5, addr: 3015},
		{segment: "temp", index: 0, addr: 5},
		{segment: "temp", index: 6, addr: 11},
		{segment: "temp", index: 7, addr: 12},
		{segment: "pointer", index: 0, addr: 3},
		{segment: "pointer", index: 1, addr: 4},
	}
	for _, data := range testData {
		access := data.segment + " " + strconv.Itoa(data.index)
		// pop writes the cell.
		cpu, _ := execute(t, setup, "push constant 1234\npop "+access, "")
		assert.Equal(t, int16(1234), cpu.RAM[data.addr], "pop %s", access)
		assert.Equal(t, int16(256), cpu.RAM[0], "pop %s", access)
		// push reads it.
		pushSetup := ram{}
		for addr, v := range setup {
			pushSetup[addr] = v
		}
		pushSetup[data.addr] = 4321
		cpu, _ = execute(t, pushSetup, "push "+access, "")
		assert.Equal(t, int16(4321), cpu.RAM[256], "push %s", access)
	}
}

func TestTranslate_PointerWritesRegister(t *testing.T) {
	cpu, _ := execute(t, ram{0: 256, 4: 3010}, "push constant 2000\npop pointer 1\npush constant 7\npop that 2", "")
	assert.Equal(t, int16(2000), cpu.RAM[4])
	// The old THAT base must not have been used as a cell address.
	assert.Equal(t, int16(0), cpu.RAM[3010])
	assert.Equal(t, int16(7), cpu.RAM[2002])
}

func TestTranslate_Static(t *testing.T) {
	lines, _, err := TranslateAll(mustParse(t, "push constant 5\npop static 3\npush static 3\npush static 3\nadd"),
		NewContext().EnterUnit("Foo"))
	require.Nil(t, err)
	assert.Contains(t, lines, "@Foo.3")
	lines = append(lines, "("+testHalt+")", "@"+testHalt, "0;JMP")
	cpu, program, err := emulator.Load(strings.NewReader(strings.Join(lines, "\n")))
	require.Nil(t, err)
	cpu.RAM[0] = 256
	require.Nil(t, cpu.RunUntil(program.Labels[testHalt], testMaxCycles))
	addr, ok := program.Vars["Foo.3"]
	require.True(t, ok)
	assert.Equal(t, int16(5), cpu.RAM[addr])
	assert.Equal(t, int16(10), cpu.RAM[256])
	assert.Equal(t, int16(257), cpu.RAM[0])
}

func TestTranslate_ComparisonLabelsAreUnique(t *testing.T) {
	lines, ctx, err := TranslateAll(mustParse(t, "function f 0\neq\neq"), NewContext().EnterUnit("Test"))
	require.Nil(t, err)
	labels := declaredLabels(lines)
	// f plus two per comparison.
	assert.Equal(t, 5, len(labels))
	assertUnique(t, labels)
	assert.Equal(t, 2, ctx.Comparisons)
}

func TestTranslate_ComparisonCounterIncrementsFirst(t *testing.T) {
	lines, ctx, err := Translate(Arithmetic{Op: OpLt}, Context{Comparisons: 41})
	require.Nil(t, err)
	assert.Equal(t, 42, ctx.Comparisons)
	assert.Equal(t, []string{"$cmp.true.42", "$cmp.end.42"}, declaredLabels(lines))
}

func TestTranslate_FlowControl(t *testing.T) {
	// sum = 1 + 2 + ... + n, n is the argument.
	functions := `
function Loop.sum 2
push constant 0
pop local 0
push argument 0
pop local 1
label LOOP
push local 1
push constant 0
eq
if-goto END
push local 0
push local 1
add
pop local 0
push local 1
push constant 1
sub
pop local 1
goto LOOP
label END
push local 0
return
`
	cpu, lines := execute(t, ram{0: 256, 1: 256, 2: 256}, "push constant 10\ncall Loop.sum 1", functions)
	assert.Equal(t, int16(55), cpu.RAM[256])
	assert.Equal(t, int16(257), cpu.RAM[0])
	assert.Contains(t, lines, "(Loop.sum$LOOP)")
	assert.Contains(t, lines, "@Loop.sum$END")
}

func TestTranslate_SameLabelInTwoFunctions(t *testing.T) {
	lines, _, err := TranslateAll(mustParse(t, "function a 0\nlabel L\ngoto L\nfunction b 0\nlabel L\nif-goto L"),
		NewContext())
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "a$L", "b", "b$L"}, declaredLabels(lines))
	assert.Contains(t, lines, "@a$L")
	assert.Contains(t, lines, "@b$L")
}

func TestTranslate_CallReturnBalance(t *testing.T) {
	setup := ram{0: 256, 1: 300, 2: 400, 3: 3000, 4: 3010}
	functions := `
function f 3
push argument 0
push argument 1
add
pop local 2
push constant 5000
pop pointer 0
push constant 6000
pop pointer 1
push local 2
return
`
	for _, args := range []int{0, 1, 2} {
		var main strings.Builder
		for i := 0; i < args; i++ {
			main.WriteString("push constant " + strconv.Itoa(10*(i+1)) + "\n")
		}
		main.WriteString("call f " + strconv.Itoa(args))
		cpu, _ := execute(t, setup, main.String(), functions)
		preCallSP := 256 + args
		assert.Equal(t, int16(preCallSP-args+1), cpu.RAM[0], "args %d", args)
		assert.Equal(t, int16(300), cpu.RAM[1], "args %d", args)
		assert.Equal(t, int16(400), cpu.RAM[2], "args %d", args)
		assert.Equal(t, int16(3000), cpu.RAM[3], "args %d", args)
		assert.Equal(t, int16(3010), cpu.RAM[4], "args %d", args)
	}
	// f reads two arguments, with both pushed the result is their sum.
	cpu, _ := execute(t, setup, "push constant 10\npush constant 20\ncall f 2", functions)
	assert.Equal(t, int16(30), cpu.RAM[256])
}

func TestTranslate_FunctionClearsLocals(t *testing.T) {
	// Garbage above SP must be zeroed by the function prologue.
	setup := ram{0: 256, 1: 300, 2: 400, 261: 11, 262: 12, 263: 13}
	functions := `
function g 3
push local 0
push local 1
add
push local 2
add
return
`
	cpu, _ := execute(t, setup, "call g 0", functions)
	assert.Equal(t, int16(0), cpu.RAM[256])
	assert.Equal(t, int16(257), cpu.RAM[0])
}

func TestTranslate_Recursion(t *testing.T) {
	// Rec.sum(n) = n + Rec.sum(n - 1), Rec.sum(0) = 0. Two call sites: main and Rec.sum itself.
	functions := `
function Rec.sum 0
push argument 0
push constant 0
eq
if-goto BASE
push argument 0
push argument 0
push constant 1
sub
call Rec.sum 1
add
return
label BASE
push constant 0
return
`
	setup := ram{0: 256, 1: 111, 2: 222, 3: 333, 4: 444}
	cpu, lines := execute(t, setup, "push constant 3\ncall Rec.sum 1", functions)
	assert.Equal(t, int16(6), cpu.RAM[256])
	assert.Equal(t, int16(257), cpu.RAM[0])
	assert.Equal(t, int16(111), cpu.RAM[1])
	assert.Equal(t, int16(222), cpu.RAM[2])
	assert.Equal(t, int16(333), cpu.RAM[3])
	assert.Equal(t, int16(444), cpu.RAM[4])

	var returnLabels []string
	for _, label := range declaredLabels(lines) {
		if strings.Contains(label, "$ret$") {
			returnLabels = append(returnLabels, label)
		}
	}
	assert.Equal(t, []string{"Test$ret$1", "Rec.sum$ret$2"}, returnLabels)
	assertUnique(t, declaredLabels(lines))
}

func TestTranslate_RecursionUnwindsFrames(t *testing.T) {
	// Each level stores its own argument in this 0 through pointer 0 before recursing, and reads it back after
	// the call returned. If THIS weren't restored in reverse call order the sums would be wrong.
	functions := `
function Rec.walk 0
push argument 0
push constant 0
eq
if-goto BASE
push argument 0
push constant 1000
add
pop pointer 0
push argument 0
pop this 0
push argument 0
push constant 1
sub
call Rec.walk 1
push this 0
add
return
label BASE
push constant 0
return
`
	cpu, _ := execute(t, ram{0: 256, 3: 50}, "push constant 3\ncall Rec.walk 1", functions)
	assert.Equal(t, int16(6), cpu.RAM[256])
	assert.Equal(t, int16(50), cpu.RAM[3])
	assert.Equal(t, int16(3), cpu.RAM[1003])
	assert.Equal(t, int16(2), cpu.RAM[1002])
	assert.Equal(t, int16(1), cpu.RAM[1001])
}

func TestTranslate_CallCounterIncrementsFirst(t *testing.T) {
	lines, ctx, err := Translate(Call{Name: "g", Args: 0}, Context{Function: "f", CallSites: 6})
	require.Nil(t, err)
	assert.Equal(t, 7, ctx.CallSites)
	assert.Equal(t, "f$ret$7", lines[len(lines)-1][1:len(lines[len(lines)-1])-1])
	assert.Equal(t, "@g", lines[len(lines)-3])
}

func TestTranslate_FlowLabelsDontMeetReturnLabels(t *testing.T) {
	functions := `
function f 0
call g 0
label ret.1
label ret
push constant 0
return
function g 0
push constant 0
return
`
	lines, _, err := TranslateAll(mustParse(t, functions), NewContext().EnterUnit("Test"))
	require.Nil(t, err)
	labels := declaredLabels(lines)
	assert.Equal(t, []string{"f", "f$ret$1", "f$ret.1", "f$ret", "g"}, labels)
	assertUnique(t, labels)
	_, _, err = emulator.Load(strings.NewReader(strings.Join(lines, "\n")))
	assert.Nil(t, err)
}

func TestTranslate_ScopeErrors(t *testing.T) {
	for _, src := range []string{"goto L", "label L", "if-goto L", "return"} {
		commands := mustParse(t, src)
		lines, _, err := TranslateAll(commands, NewContext().EnterUnit("Test"))
		assert.Nil(t, lines, src)
		var scopeErr *ScopeError
		require.True(t, errors.As(err, &scopeErr), "%s: %v", src, err)
		assert.Equal(t, src, scopeErr.Command)
		assert.Equal(t, 1, scopeErr.Pos.Line)
	}
}

func TestTranslate_SegmentErrors(t *testing.T) {
	testData := []MemoryAccess{
		{Direction: Push, Segment: SegmentPointer, Index: 2},
		{Direction: Pop, Segment: SegmentTemp, Index: 8},
		{Direction: Push, Segment: SegmentLocal, Index: -1},
		{Direction: Pop, Segment: SegmentConstant, Index: 0},
		{Direction: Push, Segment: SegmentConstant, Index: 40000},
		{Direction: Push, Segment: Segment(42), Index: 0},
	}
	for _, cmd := range testData {
		_, _, err := Translate(cmd, NewContext())
		var segmentErr *SegmentError
		assert.True(t, errors.As(err, &segmentErr), "%s: %v", cmd, err)
	}
}

func TestTranslate_ContextIsNotShared(t *testing.T) {
	ctx := NewContext()
	_, next, err := Translate(Function{Name: "f"}, ctx)
	require.Nil(t, err)
	assert.Equal(t, "", ctx.Function)
	assert.Equal(t, "f", next.Function)

	// The same input always produces the same output.
	commands := mustParse(t, "function f 1\neq\ncall f 0\nlt\nreturn")
	first, _, err := TranslateAll(commands, NewContext())
	require.Nil(t, err)
	second, _, err := TranslateAll(commands, NewContext())
	require.Nil(t, err)
	assert.Equal(t, first, second)
}
