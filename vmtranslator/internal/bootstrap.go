package internal

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultEntry     = "Sys.init"
	DefaultStackBase = 256
	haltLabel        = "$bootstrap.halt"
)

// BootstrapMode decides whether the bootstrap code is written at the start of the output.
type BootstrapMode int

const (
	// BootstrapAuto writes it only when some unit declares the entry function.
	BootstrapAuto BootstrapMode = iota
	BootstrapAlways
	BootstrapNever
)

var bootstrapModeNames = map[BootstrapMode]string{
	BootstrapAuto:   "auto",
	BootstrapAlways: "always",
	BootstrapNever:  "never",
}

func (mode BootstrapMode) String() string {
	return bootstrapModeNames[mode]
}

func ParseBootstrapMode(s string) (BootstrapMode, error) {
	for mode, name := range bootstrapModeNames {
		if strings.EqualFold(name, s) {
			return mode, nil
		}
	}
	return BootstrapAuto, errors.Errorf("unknown bootstrap mode %q, want auto, always or never", s)
}

// Bootstrap returns the program prologue: SP=stackBase, call entry 0, then a halt loop in case the entry
// function ever returns.
func Bootstrap(ctx Context, entry string, stackBase int) ([]string, Context) {
	lines := []string{
		"@" + strconv.Itoa(stackBase),
		"D=A",
		"@SP",
		"M=D",
	}
	var call code
	ctx = translateCall(&call, Call{Name: entry}, ctx)
	lines = append(lines, call...)
	lines = append(lines, "("+haltLabel+")", "@"+haltLabel, "0;JMP")
	return lines, ctx
}
