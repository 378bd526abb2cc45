package scanner

import "sdlcscan/icw"

// pcfHandler implements Phase B for one PCF state. It returns whether an
// L2 interrupt should be raised this cycle, and an error if something the
// error taxonomy treats as fatal-to-the-line happened (currently only a
// BLU buffer overrun).
type pcfHandler func(s *Scanner, idx int, line *icw.Line) (raiseL2 bool, err error)

var pcfHandlers = [16]pcfHandler{
	PCFNoOp:             pcf0,
	PCFSetMode:          pcfOneShotAck,
	PCFMonitorDSR:       pcfOneShotAck,
	PCFMonitorRIOrDSR:   pcfOneShotAck,
	PCFMonitorFlagBlock: pcf4or5,
	PCFMonitorFlagAllow: pcf4or5,
	PCFReceiveBlock:     pcf6,
	PCFReceiveAllow:     pcf7,
	PCFTransmitInitial:  pcf8,
	PCFTransmitNormal:   pcf9,
	PCFTransmitNewSync:  pcfGateOnly,
	PCFUnusedB:          pcfNoOpAlways,
	PCFTurnaroundRTSOff: pcfC,
	PCFTurnaroundRTSOn:  pcfNoOpAlways,
	PCFUnusedE:          pcfNoOpAlways,
	PCFDisable:          pcfF,
}

func pcfNoOpAlways(s *Scanner, idx int, line *icw.Line) (bool, error) { return false, nil }

// pcf0 — NO-OP. On first entry, clear check-condition bits and both
// buffers.
func pcf0(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if !line.FirstEntry() {
		return false, nil
	}
	line.SCFClearCheckCond()
	line.Req.Reset()
	line.Rsp.Reset()
	return false, nil
}

// pcfOneShotAck covers PCF 1/2/3: set norm-service, return to PCF 0, raise
// one L2.
func pcfOneShotAck(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if !line.FirstEntry() {
		return false, nil
	}
	line.SCFOr(icw.SCFNormService)
	line.SetPCFNext(PCFNoOp)
	return true, nil
}

// pcf4or5 — monitor opening flag. PCF 4 and 5 are treated identically for
// SDLC.
func pcf4or5(s *Scanner, idx int, line *icw.Line) (bool, error) {
	line.Rsp.Ptr = 0

	switch line.LineStat() {
	case icw.Reset, icw.Tx:
		return false, nil
	}

	if !line.IsSDLC() {
		return false, nil
	}

	line.SCFClearFlagDetected()
	if line.Rsp.Filled() && line.Rsp.Len > 0 && line.Rsp.Data[0] == 0x7E {
		line.SCFOr(icw.SCFFlagDetected)
		line.SetLCD(icw.LCDSDLC)
		line.SetPCFNext(PCFReceiveBlock)
		return true, nil
	}
	return false, nil
}

// pcf6 — receive, block data interrupts.
func pcf6(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if s.l2Gated() {
		return false, nil
	}
	b, err := line.Rsp.ReadByte()
	if err != nil {
		return false, err
	}
	line.SetPDF(b)
	if b == 0x7E {
		return false, nil
	}
	line.SCFOr(icw.SCFNormService)
	line.SCFClearFlagDetected()
	line.SetPDFReg(true)
	line.SetPCFNext(PCFReceiveAllow)
	return true, nil
}

// pcf7 — receive, allow data interrupts.
func pcf7(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if s.l2Gated() {
		return false, nil
	}
	if !line.IsSDLCStrict() {
		return false, nil
	}
	if line.PDFReg() {
		return false, nil // NCP hasn't drained the previous byte yet
	}

	p := line.Rsp.Ptr
	if p >= len(line.Rsp.Data) {
		return false, icw.ErrBufferOverrun
	}
	eflag := p >= 2 &&
		line.Rsp.Data[p-2] == 0x47 &&
		line.Rsp.Data[p-1] == 0x0F &&
		line.Rsp.Data[p] == 0x7E

	b, err := line.Rsp.ReadByte()
	if err != nil {
		return false, err
	}
	line.SetPDF(b)

	if eflag {
		line.Rsp.SetFilled(false)
		line.SetLineStat(icw.Tx)
		line.SCFOr(icw.SCFNormService | icw.SCFFlagDetected)
		line.SetPCFNext(PCFReceiveBlock)
	} else {
		line.SetPDFReg(true)
		line.SCFOr(icw.SCFNormService)
		line.SetPCFNext(PCFReceiveAllow)
	}
	return true, nil
}

// pcf8 — transmit initial (RTS on). CTS is synthetic and always granted,
// so this always moves on to PCF 9 without raising an L2 of its own.
func pcf8(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if s.l2Gated() {
		return false, nil
	}
	if !line.IsSDLCStrict() {
		return false, nil
	}
	line.SCFClearFlagDetected()
	line.SetPCFNext(PCFTransmitNormal)
	return false, nil
}

// pcf9 — transmit normal.
func pcf9(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if s.l2Gated() {
		return false, nil
	}
	if !line.IsSDLCStrict() {
		return false, nil
	}
	if !line.PDFReg() {
		return false, nil // wait for NCP to produce a byte
	}
	if err := line.Req.Append(line.PDF()); err != nil {
		return false, err
	}
	line.SetPDFReg(false)
	line.SCFOr(icw.SCFNormService)
	line.SetPCFNext(PCFTransmitNormal)
	return true, nil
}

// pcfGateOnly covers PCF A: identical L2/level gate to 8/9, otherwise a
// no-op. Left to NCP whether sync bytes need to be re-emitted; the TCP
// transport doesn't need them.
func pcfGateOnly(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if s.l2Gated() {
		return false, nil
	}
	return false, nil
}

// pcfC — turn-around, RTS off. Canonical end-of-outbound-frame
// transition.
func pcfC(s *Scanner, idx int, line *icw.Line) (bool, error) {
	if !line.IsSDLCStrict() {
		return false, nil
	}
	if !line.FirstEntry() {
		return false, nil
	}
	line.Req.Len = line.Req.Ptr
	line.Req.SetFilled(true)
	line.Req.Ptr = 0
	line.SetLineStat(icw.Rx)
	line.SCFOr(icw.SCFNormService)
	line.SetPCFNext(PCFMonitorFlagAllow)
	return true, nil
}

// pcfF — disable line.
func pcfF(s *Scanner, idx int, line *icw.Line) (bool, error) {
	line.SCFOr(icw.SCFNormService)
	line.SetPCFNext(PCFNoOp)
	return true, nil
}
