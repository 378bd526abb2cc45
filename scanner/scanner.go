// Package scanner implements the Type-2 Communication Scanner's PCF state
// machine: one Step per line per cycle, run continuously by Run.
package scanner

import (
	"context"
	"errors"
	"log"
	"runtime"
	"time"

	"sdlcscan/affinity"
	"sdlcscan/ereg"
	"sdlcscan/icw"
)

// PCF state values. Named per §4.1; the zero value (PCF 0) is the idle
// no-op state.
const (
	PCFNoOp               byte = 0x0
	PCFSetMode            byte = 0x1
	PCFMonitorDSR         byte = 0x2
	PCFMonitorRIOrDSR     byte = 0x3
	PCFMonitorFlagBlock   byte = 0x4
	PCFMonitorFlagAllow   byte = 0x5
	PCFReceiveBlock       byte = 0x6
	PCFReceiveAllow       byte = 0x7
	PCFTransmitInitial    byte = 0x8
	PCFTransmitNormal     byte = 0x9
	PCFTransmitNewSync    byte = 0xA
	PCFUnusedB            byte = 0xB
	PCFTurnaroundRTSOff   byte = 0xC
	PCFTurnaroundRTSOn    byte = 0xD
	PCFUnusedE            byte = 0xE
	PCFDisable            byte = 0xF
)

// DefaultCore is the CPU core the scanner pins itself to, by convention
// (CCU is core 1, Line I/O is core 3).
const DefaultCore = 2

// ScanInterval is how long the scan loop sleeps between full passes over
// every line.
const ScanInterval = 100 * time.Microsecond

// Scanner owns the per-line register files and steps the PCF state
// machine against a shared external-register bus.
type Scanner struct {
	bus   *ereg.Bus
	lines []*icw.Line

	Logger *log.Logger
	Debug  icw.DebugFlags
}

// New builds a Scanner over the given bus and lines. The bus and lines
// are expected to have been constructed together (same line count, same
// order).
func New(bus *ereg.Bus, lines []*icw.Line) *Scanner {
	return &Scanner{bus: bus, lines: lines}
}

// NumLines reports how many lines this scanner steps.
func (s *Scanner) NumLines() int { return len(s.lines) }

// Line returns the line at index i.
func (s *Scanner) Line(i int) *icw.Line { return s.lines[i] }

func (s *Scanner) l2Gated() bool {
	return s.bus.ServiceReqL2() || s.bus.CurrentLevel() == 2
}

func (s *Scanner) trace(format string, args ...any) {
	if s.Logger != nil && s.Debug.Has(icw.DebugScanner) {
		s.Logger.Printf(format, args...)
	}
}

// Step runs Phases A, B and C of one scan cycle for a single line.
func (s *Scanner) Step(idx int) error {
	line := s.lines[idx]

	// Every cycle DCD is forced on, regardless of state.
	line.SCFOr(icw.SCFDCD)

	// Phase A: observe an NCP-driven PCF change.
	if line.PCF() != line.PCFNext() {
		if line.PCFNext() == PCFNoOp {
			line.SetLineStat(icw.Reset)
		}
		line.SetPCFPrev(line.PCF())
		line.SetPCF(line.PCFNext())
	}

	// Phase B: dispatch on current PCF.
	raiseL2, err := pcfHandlers[line.PCF()](s, idx, line)
	if err != nil {
		s.handleFault(idx, err)
		return err
	}

	// Phase C: post-process.
	if raiseL2 {
		s.bus.RequestL2(idx)
		s.trace("line %d: pcf=%X raised L2 (abar_int=0x%03X)", idx, line.PCF(), s.bus.ABARInt())
	}
	line.SetPCFPrev(line.PCF())
	if line.PCF() != line.PCFNext() {
		line.SetPCF(line.PCFNext())
	}
	return nil
}

// handleFault implements the buffer-overrun handling decided in place of
// the original's undefined behavior: the offending line is reset, not the
// whole process.
func (s *Scanner) handleFault(idx int, err error) {
	line := s.lines[idx]
	if s.Logger != nil {
		s.Logger.Printf("line %d: fatal: %v; resetting line", idx, err)
	}
	if errors.Is(err, icw.ErrBufferOverrun) {
		line.Req.Reset()
		line.Rsp.Reset()
		line.SetLineStat(icw.Reset)
		line.SetPCFNext(PCFNoOp)
	}
}

// Run steps every line once per cycle, forever, until ctx is canceled. It
// pins the calling OS thread to core first; pinning failure is logged but
// not fatal.
func (s *Scanner) Run(ctx context.Context, core int) {
	runtime.LockOSThread()
	if err := affinity.Pin(core); err != nil && s.Logger != nil {
		s.Logger.Printf("scanner: core pin advisory failure: %v", err)
	}

	ticker := time.NewTicker(ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		for i := range s.lines {
			_ = s.Step(i)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
