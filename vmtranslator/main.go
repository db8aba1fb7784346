package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"nands/assembler"
	"nands/emulator"
	"nands/vmtranslator/internal"
)

// A simple program to translate hack vm code to hack assembler code.

var (
	output     string
	hackOutput string
	verbose    bool
	bootstrap  string
	entry      string
	stackBase  int
	comments   bool
	cycles     int
)

var rootCmd = &cobra.Command{
	Use:   "vmtranslator path",
	Short: "Translate hack vm code to hack assembler code",
	Long: `Vmtranslator translates a .vm file, or every .vm file of a directory, into
one hack assembler file. Files of a directory are translated in name order
and each file's static variables are qualified by the file name.

The bootstrap code (SP=256, call Sys.init 0) is written first when
--bootstrap is always, or when it is auto and some file declares the entry
function.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := translate(args[0])
		if err != nil {
			return err
		}
		if verbose {
			fmt.Println(strings.Join(lines, "\n"))
		}
		path := output
		if path == "" {
			path = internal.DefaultOutput(args[0])
		}
		if err := internal.SaveTo(path, lines); err != nil {
			return err
		}
		log.Printf("wrote %d lines to %s", len(lines), path)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run path",
	Short: "Translate a vm program and execute it on the hack emulator",
	Long: `Run translates the program like the root command does, assembles the
result and executes it for at most --cycles cycles, then prints the
stack pointer and the top of the stack.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := translate(args[0])
		if err != nil {
			return err
		}
		cpu, _, err := emulator.Load(strings.NewReader(strings.Join(lines, "\n")))
		if err != nil {
			return err
		}
		err = cpu.Run(cycles)
		if err != nil && errors.Cause(err) != emulator.ErrCycleLimit {
			return errors.Wrap(err, "run")
		}
		sp := cpu.RAM[0]
		fmt.Printf("cycles: %d, pc: %d, halted: %v\n", cpu.Cycles, cpu.PC, cpu.Halted())
		fmt.Printf("SP: %d, LCL: %d, ARG: %d, THIS: %d, THAT: %d\n", sp, cpu.RAM[1], cpu.RAM[2], cpu.RAM[3],
			cpu.RAM[4])
		if sp > 0 {
			fmt.Printf("top: %d\n", cpu.RAM[sp-1])
		}
		return nil
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble path",
	Short: "Translate a vm program and assemble it into hack machine code",
	Long: `Assemble translates the program like the root command does and writes the
hack machine code, one 16 characters binary word per line, to --output or
next to the source with the .hack extension.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := translate(args[0])
		if err != nil {
			return err
		}
		program, err := assembler.Assemble(strings.NewReader(strings.Join(lines, "\n")))
		if err != nil {
			return errors.Wrap(err, "assemble")
		}
		path := hackOutput
		if path == "" {
			path = strings.TrimSuffix(internal.DefaultOutput(args[0]), ".asm") + ".hack"
		}
		if err := program.SaveHack(path); err != nil {
			return err
		}
		log.Printf("wrote %d words to %s", len(program.Commands), path)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "print the translated code and per file progress")
	flags.StringVar(&bootstrap, "bootstrap", "auto", "write the bootstrap code: auto, always or never")
	flags.StringVar(&entry, "entry", internal.DefaultEntry, "the function the bootstrap code calls")
	flags.IntVar(&stackBase, "stack-base", internal.DefaultStackBase, "the initial stack pointer")
	flags.BoolVar(&comments, "comments", false, "write every vm command as a comment before its code")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "the saved path, defaults to <dir>/<dir>.asm or <file>.asm")
	runCmd.Flags().IntVar(&cycles, "cycles", 1000000, "the maximum number of cycles to execute")
	assembleCmd.Flags().StringVarP(&hackOutput, "output", "o", "", "the saved path, defaults to the source path with the .hack extension")
	rootCmd.AddCommand(runCmd, assembleCmd)
}

func translate(path string) ([]string, error) {
	mode, err := internal.ParseBootstrapMode(bootstrap)
	if err != nil {
		return nil, err
	}
	opts := internal.DefaultOptions()
	opts.Bootstrap = mode
	opts.Entry = entry
	opts.StackBase = stackBase
	opts.Comments = comments
	if verbose {
		opts.Logger = log.Default()
	}
	program, err := internal.LoadPath(path)
	if err != nil {
		return nil, err
	}
	return program.Translate(opts)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("[Translator]: ")
	if err := rootCmd.Execute(); err != nil {
		log.Printf("failed to translate: %v", err)
		os.Exit(1)
	}
}
