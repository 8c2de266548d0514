// Package conformance fuzzes the CPU core against the quantified
// invariants of spec section 8, fanning independent CPU instances out
// across a worker pool. This is additive development-time confidence,
// not part of the core's correctness contract.
package conformance

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"z80core/pkg/cpu"
)

// Violation records one invariant failure found during a run.
type Violation struct {
	Seed        uint64
	Instruction int
	Invariant   string
	Detail      string
}

// Report summarizes a completed run.
type Report struct {
	Checked    int64
	Violations []Violation
}

// Pool runs seeded random-instruction-stream checks across NumWorkers
// goroutines, each owning its own *cpu.CPU: a task channel, an atomic
// instruction counter, a mutex-guarded violation list, and a ticking
// progress reporter.
type Pool struct {
	NumWorkers int
	checked    atomic.Int64
	violations []Violation
	mu         sync.Mutex
}

// NewPool returns a pool; numWorkers<=0 defaults to runtime.NumCPU().
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{NumWorkers: numWorkers}
}

// Run executes numSeeds independent seeded streams of stepsPerSeed
// random instructions each, checking the invariants once after each
// stream has run, and returns the aggregate report.
func (p *Pool) Run(numSeeds int, stepsPerSeed int, verbose bool) Report {
	seeds := make(chan uint64, numSeeds)
	for i := 0; i < numSeeds; i++ {
		seeds <- uint64(i) + 1
	}
	close(seeds)

	done := make(chan struct{})
	start := time.Now()
	if verbose {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					fmt.Printf("  [%s] %d instructions checked, %d violations\n",
						time.Since(start).Round(time.Second), p.checked.Load(), len(p.violations))
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				p.runSeed(seed, stepsPerSeed)
			}
		}()
	}
	wg.Wait()
	close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	return Report{Checked: p.checked.Load(), Violations: append([]Violation(nil), p.violations...)}
}

func (p *Pool) runSeed(seed uint64, steps int) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	mem := cpu.NewMemory()
	c := cpu.NewCPU(mem)
	bus := cpu.NullBus{}

	for i := 0; i < steps; i++ {
		op := uint8(rng.IntN(256))
		mem.W8(c.Reg.PC(), op)
		// Give the opcode a plausible tail so prefixed/immediate forms
		// don't read uninitialized-looking garbage past PC.
		mem.W8(c.Reg.PC()+1, uint8(rng.IntN(256)))
		mem.W8(c.Reg.PC()+2, uint8(rng.IntN(256)))
		mem.W8(c.Reg.PC()+3, uint8(rng.IntN(256)))

		c.Step(bus)
		p.checked.Add(1)
	}

	// EX AF,AF' twice is idempotent.
	beforeAF, beforeAF2 := c.Reg.Get16(cpu.AF), c.Reg.Get16(cpu.AF_)
	c.Reg.Swap(cpu.AF, cpu.AF_)
	c.Reg.Swap(cpu.AF, cpu.AF_)
	if c.Reg.Get16(cpu.AF) != beforeAF || c.Reg.Get16(cpu.AF_) != beforeAF2 {
		p.record(Violation{seed, steps, "ex-af-af-idempotent", "double EX AF,AF' changed state"})
	}

	// EXX twice is idempotent.
	bc, de, hl := c.Reg.Get16(cpu.BC), c.Reg.Get16(cpu.DE), c.Reg.Get16(cpu.HL)
	c.Reg.Swap(cpu.BC, cpu.BC_)
	c.Reg.Swap(cpu.DE, cpu.DE_)
	c.Reg.Swap(cpu.HL, cpu.HL_)
	c.Reg.Swap(cpu.BC, cpu.BC_)
	c.Reg.Swap(cpu.DE, cpu.DE_)
	c.Reg.Swap(cpu.HL, cpu.HL_)
	if c.Reg.Get16(cpu.BC) != bc || c.Reg.Get16(cpu.DE) != de || c.Reg.Get16(cpu.HL) != hl {
		p.record(Violation{seed, steps, "exx-idempotent", "double EXX changed state"})
	}

	// patch/unpatch round-trip restores defaults: after unpatch, field 4
	// ("H") must read/write the real H register again, not IXH.
	c.Reg.PatchIX()
	c.Reg.Unpatch()
	c.Reg.Set8(cpu.H, 0x77)
	c.Reg.Set16(cpu.HL, 0x1234)
	if c.Reg.R8(4) != 0x77 || c.Reg.R16SP(2) != 0x1234 {
		p.record(Violation{seed, steps, "unpatch-restores-defaults", "unpatch left selection tables patched"})
	}
}

func (p *Pool) record(v Violation) {
	p.mu.Lock()
	p.violations = append(p.violations, v)
	p.mu.Unlock()
}
