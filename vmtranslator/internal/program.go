package internal

import (
	"io"
	"io/ioutil"
	"log"
	"strconv"

	"github.com/pkg/errors"
)

// Unit is one compilation unit, usually the commands of one .vm file. Its name qualifies the unit's statics.
type Unit struct {
	Name     string
	Commands []Command
}

// LoadUnit reads and parses a whole unit. Errors carry the unit name.
func LoadUnit(name string, rd io.Reader) (Unit, error) {
	src, err := ioutil.ReadAll(rd)
	if err != nil {
		return Unit{}, errors.Wrapf(err, "read unit %s", name)
	}
	commands, err := Parse(string(src))
	if err != nil {
		return Unit{}, errors.Wrapf(err, "unit %s", name)
	}
	return Unit{Name: name, Commands: commands}, nil
}

type Options struct {
	Bootstrap BootstrapMode
	Entry     string
	StackBase int
	// Comments writes each vm command as a comment before its code.
	Comments bool
	// Logger reports per unit progress when not nil.
	Logger *log.Logger
}

func DefaultOptions() Options {
	return Options{
		Bootstrap: BootstrapAuto,
		Entry:     DefaultEntry,
		StackBase: DefaultStackBase,
	}
}

// Program is an ordered list of units translated into one output.
type Program struct {
	Units []Unit
}

func (program *Program) Add(unit Unit) {
	program.Units = append(program.Units, unit)
}

// HasFunction reports whether some unit declares the function name.
func (program *Program) HasFunction(name string) bool {
	for _, unit := range program.Units {
		for _, cmd := range unit.Commands {
			if fn, ok := cmd.(Function); ok && fn.Name == name {
				return true
			}
		}
	}
	return false
}

func (program *Program) needsBootstrap(opts Options) bool {
	switch opts.Bootstrap {
	case BootstrapAlways:
		return true
	case BootstrapNever:
		return false
	default:
		return program.HasFunction(opts.Entry)
	}
}

// Translate translates every unit in order with one shared context. The first failing unit aborts the run and
// no lines are returned: a truncated program can't be told apart from a short one downstream.
func (program *Program) Translate(opts Options) ([]string, error) {
	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}
	if opts.StackBase == 0 {
		opts.StackBase = DefaultStackBase
	}
	var lines []string
	ctx := NewContext()
	if program.needsBootstrap(opts) {
		var bootstrap []string
		bootstrap, ctx = Bootstrap(ctx, opts.Entry, opts.StackBase)
		if opts.Comments {
			lines = append(lines, "// bootstrap: SP="+strconv.Itoa(opts.StackBase)+", call "+opts.Entry+" 0")
		}
		lines = append(lines, bootstrap...)
	}
	for _, unit := range program.Units {
		ctx = ctx.EnterUnit(unit.Name)
		before := len(lines)
		for _, cmd := range unit.Commands {
			out, next, err := Translate(cmd, ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "unit %s", unit.Name)
			}
			if opts.Comments {
				lines = append(lines, "// "+cmd.String())
			}
			lines = append(lines, out...)
			ctx = next
		}
		if opts.Logger != nil {
			opts.Logger.Printf("translated unit %s: %d commands, %d lines", unit.Name, len(unit.Commands),
				len(lines)-before)
		}
	}
	return lines, nil
}
