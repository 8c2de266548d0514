// Command z80run drives the Z80 core from the command line: load a flat
// memory image, run it under register/flag tracing, or exercise the
// conformance fuzzer. A single root command carries flag-bearing
// subcommands that return wrapped errors through RunE.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"z80core/pkg/conformance"
	"z80core/pkg/cpu"
	"z80core/pkg/inst"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80run",
		Short: "Z80 core runner — load, step, trace, and snapshot a CPU instance",
	}

	var loadAddr uint16
	var startPC uint16
	var maxSteps int

	var runSeed, traceSeed regSeed

	runCmd := &cobra.Command{
		Use:   "run <image-file>",
		Short: "Load a memory image and run until HALT or --max-steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadImage(args[0], loadAddr, startPC)
			if err != nil {
				return err
			}
			runSeed.apply(c)
			steps, tstates := runUntilHalt(c, maxSteps)
			fmt.Printf("halted after %d steps (%d T-states)\n", steps, tstates)
			printRegisters(c)
			return nil
		},
	}
	runCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0, "address to load the image at (ignored for Intel HEX input)")
	runCmd.Flags().Uint16Var(&startPC, "pc", 0, "initial PC")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 1_000_000, "step limit before giving up")
	runSeed.bind(runCmd.Flags())

	traceCmd := &cobra.Command{
		Use:   "trace <image-file>",
		Short: "Load a memory image and print one trace line per instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadImage(args[0], loadAddr, startPC)
			if err != nil {
				return err
			}
			traceSeed.apply(c)
			bus := cpu.NullBus{}
			for i := 0; i < maxSteps && !c.Halt; i++ {
				pc := c.Reg.PC()
				code := c.Mem.Slice(pc, 4)
				mnemonic, _ := inst.Disassemble(code, 0)
				t := c.Step(bus)
				fmt.Printf("%04X  %-20s  T=%-3d A=%02X F=%02X BC=%04X DE=%04X HL=%04X SP=%04X\n",
					pc, mnemonic, t,
					c.Reg.Get8(cpu.A), c.Reg.Get8(cpu.F),
					c.Reg.Get16(cpu.BC), c.Reg.Get16(cpu.DE), c.Reg.Get16(cpu.HL), c.Reg.Get16(cpu.SP))
			}
			return nil
		},
	}
	traceCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0, "address to load the image at (ignored for Intel HEX input)")
	traceCmd.Flags().Uint16Var(&startPC, "pc", 0, "initial PC")
	traceCmd.Flags().IntVar(&maxSteps, "max-steps", 1000, "number of instructions to trace")
	traceSeed.bind(traceCmd.Flags())

	snapSaveCmd := &cobra.Command{
		Use:   "snapshot-save <image-file> <snapshot-file>",
		Short: "Load an image, run until HALT or --max-steps, and save a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadImage(args[0], loadAddr, startPC)
			if err != nil {
				return err
			}
			runUntilHalt(c, maxSteps)
			if err := c.SaveSnapshot(args[1]); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			fmt.Printf("wrote snapshot to %s\n", args[1])
			return nil
		},
	}
	snapSaveCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0, "address to load the image at")
	snapSaveCmd.Flags().Uint16Var(&startPC, "pc", 0, "initial PC")
	snapSaveCmd.Flags().IntVar(&maxSteps, "max-steps", 1_000_000, "step limit before giving up")

	snapLoadCmd := &cobra.Command{
		Use:   "snapshot-load <snapshot-file>",
		Short: "Load a snapshot file and print its register state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cpu.NewCPU(cpu.NewMemory())
			if err := c.LoadSnapshot(args[0]); err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			printRegisters(c)
			return nil
		},
	}

	var numWorkers, numSeeds, stepsPerSeed int
	var verboseFuzz bool
	fuzzCmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Run the conformance fuzzer against random instruction streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := conformance.NewPool(numWorkers)
			report := pool.Run(numSeeds, stepsPerSeed, verboseFuzz)
			fmt.Printf("checked %d instructions, %d violations\n", report.Checked, len(report.Violations))
			for _, v := range report.Violations {
				fmt.Printf("  seed=%d instr=%d %s: %s\n", v.Seed, v.Instruction, v.Invariant, v.Detail)
			}
			if len(report.Violations) > 0 {
				return fmt.Errorf("%d conformance violations found", len(report.Violations))
			}
			return nil
		},
	}
	fuzzCmd.Flags().IntVar(&numWorkers, "workers", 0, "worker goroutines (0 = NumCPU)")
	fuzzCmd.Flags().IntVar(&numSeeds, "seeds", 64, "number of independent random seeds")
	fuzzCmd.Flags().IntVar(&stepsPerSeed, "steps", 2000, "instructions executed per seed")
	fuzzCmd.Flags().BoolVar(&verboseFuzz, "verbose", false, "print periodic progress")

	rootCmd.AddCommand(runCmd, traceCmd, snapSaveCmd, snapLoadCmd, fuzzCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadImage reads either a raw binary file or an Intel HEX file into a
// fresh CPU's memory and sets PC to startPC. A file whose first non-empty
// byte is ':' is treated as Intel HEX (its own record addresses are used,
// loadAddr is ignored); everything else is the trivial flat-image loader:
// a byte copy into memory starting at loadAddr, with no format
// intelligence.
func loadImage(path string, loadAddr, startPC uint16) (*cpu.CPU, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mem := cpu.NewMemory()
	if isIntelHex(data) {
		if err := loadIntelHexInto(bytes.NewReader(data), mem); err != nil {
			return nil, fmt.Errorf("parse intel hex: %w", err)
		}
	} else {
		mem.Load(loadAddr, data)
	}
	c := cpu.NewCPU(mem)
	c.Reg.SetPC(startPC)
	return c, nil
}

// isIntelHex reports whether data looks like an Intel HEX text file: its
// first non-whitespace byte is the ':' record marker.
func isIntelHex(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}

// regSeed binds the --af/--bc/--de/--hl/--ix/--iy/--sp register-seed
// flags shared by `run` and `trace`, applied to a freshly loaded CPU
// whose registers otherwise start zeroed, so a default (0) flag value is
// a no-op rather than a special "unset" case.
type regSeed struct {
	af, bc, de, hl, ix, iy, sp uint16
}

func (s *regSeed) bind(fs *pflag.FlagSet) {
	fs.Uint16Var(&s.af, "af", 0, "initial AF register value")
	fs.Uint16Var(&s.bc, "bc", 0, "initial BC register value")
	fs.Uint16Var(&s.de, "de", 0, "initial DE register value")
	fs.Uint16Var(&s.hl, "hl", 0, "initial HL register value")
	fs.Uint16Var(&s.ix, "ix", 0, "initial IX register value")
	fs.Uint16Var(&s.iy, "iy", 0, "initial IY register value")
	fs.Uint16Var(&s.sp, "sp", 0, "initial SP register value")
}

func (s *regSeed) apply(c *cpu.CPU) {
	c.Reg.Set16(cpu.AF, s.af)
	c.Reg.Set16(cpu.BC, s.bc)
	c.Reg.Set16(cpu.DE, s.de)
	c.Reg.Set16(cpu.HL, s.hl)
	c.Reg.Set16(cpu.IX, s.ix)
	c.Reg.Set16(cpu.IY, s.iy)
	c.Reg.Set16(cpu.SP, s.sp)
}

func runUntilHalt(c *cpu.CPU, maxSteps int) (steps, tstates int) {
	bus := cpu.NullBus{}
	for steps = 0; steps < maxSteps && !c.Halt; steps++ {
		tstates += c.Step(bus)
	}
	return steps, tstates
}

func printRegisters(c *cpu.CPU) {
	fmt.Printf("PC=%04X SP=%04X AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X\n",
		c.Reg.PC(), c.Reg.Get16(cpu.SP), c.Reg.Get16(cpu.AF), c.Reg.Get16(cpu.BC),
		c.Reg.Get16(cpu.DE), c.Reg.Get16(cpu.HL), c.Reg.Get16(cpu.IX), c.Reg.Get16(cpu.IY))
	fmt.Printf("I=%02X R=%02X IM=%d IFF1=%v IFF2=%v HALT=%v\n",
		c.Reg.I, c.Reg.R, c.Reg.IM, c.IFF1, c.IFF2, c.Halt)
}
