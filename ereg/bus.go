// Package ereg models the 3705's external register bank (0x40-0x47), the
// shared surface NCP and the scanner use to talk to each other, plus the
// global level-2 interrupt contract.
package ereg

import (
	"sync/atomic"

	"sdlcscan/icw"
	"sdlcscan/mask"
)

// Bus is the process-wide register bank. One Bus is shared by the scanner
// and whatever drives the NCP side of the register writes (in this
// module, a Line I/O worker never touches it directly; CCU-facing code
// and tests do).
type Bus struct {
	lines []*icw.Line

	abar   atomic.Uint32 // 0x40 CMBAROUT: selected line, 0x020+index
	adrSub atomic.Uint32 // 0x41 CMADRSUB: scanner address substitution
	scanLt atomic.Uint32 // 0x42 CMSCANLT: upper scan limit modification
	ctl    atomic.Uint32 // 0x43 CMCTL (write) / CMERREG (read)

	svcReqL2     atomic.Bool
	abarInt      atomic.Uint32
	currentLevel atomic.Uint32
}

// NewBus builds a register bank over the given lines, indexed the same way
// ABAR addresses them (line i selects ABAR == 0x020+i).
func NewBus(lines []*icw.Line) *Bus {
	return &Bus{lines: lines}
}

// NumLines returns how many lines this bus was built with.
func (b *Bus) NumLines() int { return len(b.lines) }

// Line returns the line at index i.
func (b *Bus) Line(i int) *icw.Line { return b.lines[i] }

// WriteABAR selects a line by its ABAR address (0x020+index).
func (b *Bus) WriteABAR(v uint32) { b.abar.Store(v) }

// ReadABAR returns the currently selected ABAR address.
func (b *Bus) ReadABAR() uint32 { return b.abar.Load() }

// SelectedLine resolves the currently selected ABAR address back to a
// Line, reporting false if it doesn't name one of this bus's lines.
func (b *Bus) SelectedLine() (*icw.Line, int, bool) {
	idx := int(b.abar.Load()) - 0x020
	if idx < 0 || idx >= len(b.lines) {
		return nil, -1, false
	}
	return b.lines[idx], idx, true
}

// WriteReg41 sets the scanner address substitution register.
func (b *Bus) WriteReg41(v uint32) { b.adrSub.Store(v) }

// ReadReg41 reads the scanner address substitution register.
func (b *Bus) ReadReg41() uint32 { return b.adrSub.Load() }

// WriteReg42 sets the upper scan limit modification register.
func (b *Bus) WriteReg42(v uint32) { b.scanLt.Store(v) }

// ReadReg42 reads the upper scan limit modification register.
func (b *Bus) ReadReg42() uint32 { return b.scanLt.Load() }

// WriteReg43 writes CMCTL (CA address / ESC status). The core doesn't
// interpret this; it's carried for a consumer wired to the rest of the
// emulator.
func (b *Bus) WriteReg43(v uint32) { b.ctl.Store(v) }

// ReadReg43 reads CMERREG (scan-error register).
func (b *Bus) ReadReg43() uint32 { return b.ctl.Load() }

// PutICW44 applies an NCP write to register 0x44: (scf<<8 | pdf).
func (b *Bus) PutICW44(line *icw.Line, v uint32) {
	scf, pdf := mask.SplitWord16(uint16(v))
	line.SetSCF(scf)
	line.SetPDF(pdf)
}

// PutICW45 applies an NCP write to register 0x45: (lcd<<12 | pcf_next<<8 |
// sdf). Note this populates pcf_next, never pcf directly — that's what
// drives the scanner's Phase A edge detection.
func (b *Bus) PutICW45(line *icw.Line, v uint32) {
	lcd, pcfNext, sdf := mask.SplitWord20(v)
	line.SetLCD(lcd)
	line.SetPCFNext(pcfNext)
	line.SetSDF(sdf)
}

// GetICW assembles the four read-side registers for a line exactly as an
// NCP register read of 0x44-0x47 would see them.
func (b *Bus) GetICW(line *icw.Line) (reg44, reg45, reg46, reg47 uint32) {
	reg44 = uint32(mask.Word16(line.SCF(), line.PDF()))
	reg45 = mask.Word20(line.LCD(), line.PCF(), line.SDF())
	reg46 = 0xF0A5
	reg47 = uint32(line.RFlags())
	return
}

// ServiceReqL2 reports whether an L2 interrupt is currently pending CCU
// service.
func (b *Bus) ServiceReqL2() bool { return b.svcReqL2.Load() }

// ABARInt returns the line-of-interrupt address last latched by
// RequestL2.
func (b *Bus) ABARInt() uint32 { return b.abarInt.Load() }

// CurrentLevel returns the CCU's current interrupt level.
func (b *Bus) CurrentLevel() uint32 { return b.currentLevel.Load() }

// SetCurrentLevel is the CCU-side setter for the interrupt level gate.
func (b *Bus) SetCurrentLevel(level uint32) { b.currentLevel.Store(level) }

// RequestL2 raises a level-2 interrupt for lineIndex, spin-waiting first
// if one is already pending. It is an internal invariant violation for
// two requesters to race past the wait and both observe the flag clear;
// that case panics rather than silently issuing a second request.
func (b *Bus) RequestL2(lineIndex int) {
	for b.svcReqL2.Load() {
		// CCU still servicing the previous interrupt.
	}
	b.abarInt.Store(uint32(0x020 + lineIndex))
	if !b.svcReqL2.CompareAndSwap(false, true) {
		panic("ereg: svc_req_L2 raised while already pending")
	}
}

// ClearL2 is the CCU-side call that completes L2 servicing, unblocking
// the next RequestL2.
func (b *Bus) ClearL2() { b.svcReqL2.Store(false) }
