// Package lineio moves bytes between a line's BLU buffers and a TCP peer
// standing in for the original coax/modem-attached device. One Line owns
// one TCP listener; the scanner and this package communicate only through
// the shared icw.Line's Req/Rsp buffers and their FILLED/EMPTY flags.
package lineio

import (
	"context"
	"errors"
	"log"
	"net"
	"runtime"
	"time"

	"sdlcscan/affinity"
	"sdlcscan/icw"
)

// ConnState is whether a line's TCP peer is currently attached.
type ConnState uint32

const (
	Disc ConnState = iota
	Conn
)

func (c ConnState) String() string {
	switch c {
	case Conn:
		return "CONN"
	default:
		return "DISC"
	}
}

// Core is the CPU core line I/O pins itself to, by convention (CPU is
// core 1, scanner is core 2).
const Core = 3

// DefaultBasePort is the first line's TCP port; line i listens on
// DefaultBasePort+i.
const DefaultBasePort = 37500 + 20

// PollInterval is how long Run waits between passes over a line, matching
// the original's usleep(100) spin.
const PollInterval = 100 * time.Microsecond

// acceptPoll and readPoll bound how long a single Accept/Read may block
// per pass, standing in for the original's 25ms epoll_wait and its
// FIONREAD-then-read non-blocking check.
const (
	acceptPoll = 25 * time.Millisecond
	readPoll   = 1 * time.Millisecond
)

// Line drives one TCP-attached line: accepting a peer when disconnected,
// and shuttling bytes against the shared icw.Line's buffers when
// connected.
type Line struct {
	Index int
	Port  int

	icwLine  *icw.Line
	listener *net.TCPListener
	peer     net.Conn
	state    ConnState

	Logger *log.Logger
	Debug  icw.DebugFlags
}

// NewLine builds a Line for the given index and port, bound to the
// scanner-owned icw.Line it exchanges bytes with. It starts DISC; call
// Listen before Run.
func NewLine(index, port int, l *icw.Line) *Line {
	return &Line{Index: index, Port: port, icwLine: l, state: Disc}
}

// Listen opens the TCP listener. Must be called once before Run.
func (l *Line) Listen() error {
	addr := &net.TCPAddr{Port: l.Port}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return wrapErr("listen", err)
	}
	l.listener = ln
	return nil
}

func (l *Line) trace(format string, args ...any) {
	if l.Logger != nil && l.Debug.Has(icw.DebugBLU) {
		l.Logger.Printf(format, args...)
	}
}

// State reports whether a peer is currently attached.
func (l *Line) State() ConnState { return l.state }

// Addr reports the listener's bound address. Valid only after Listen.
func (l *Line) Addr() net.Addr { return l.listener.Addr() }

// Run drives one line forever: flush outbound frames, drain inbound
// frames, and accept a new peer when disconnected, until ctx is
// canceled. It pins the calling OS thread to core first; pinning failure
// is logged but not fatal.
func (l *Line) Run(ctx context.Context, core int) {
	runtime.LockOSThread()
	if err := affinity.Pin(core); err != nil && l.Logger != nil {
		l.Logger.Printf("lineio: line %d core pin advisory failure: %v", l.Index, err)
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.close()
			return
		default:
		}

		if l.state == Conn {
			l.flushOutbound()
			l.drainInbound()
		} else {
			l.reconnect()
		}

		select {
		case <-ctx.Done():
			l.close()
			return
		case <-ticker.C:
		}
	}
}

func (l *Line) close() {
	if l.peer != nil {
		l.peer.Close()
		l.peer = nil
	}
}

// flushOutbound sends whatever the scanner has staged in Req to the
// peer, skipping a leading 0x00/0xAA clocking byte the way the original
// SendSDLC does.
func (l *Line) flushOutbound() {
	buf := l.icwLine.Req
	if !buf.Filled() {
		return
	}
	data := buf.Data[:buf.Len]
	start := 0
	if len(data) > 0 && (data[0] == 0x00 || data[0] == 0xAA) {
		start = 1
	}
	if _, err := l.peer.Write(data[start:]); err != nil {
		l.trace("line %d: send failed: %v", l.Index, err)
		l.close()
		l.state = Disc
		return
	}
	l.trace("line %d: sent %d bytes to peer", l.Index, len(data)-start)
	if l.Logger != nil && l.Debug.Has(icw.DebugBLU) {
		l.Logger.Print(icw.DumpBLU("req", buf))
	}
	buf.Reset()
}

// drainInbound reads whatever the peer has sent into Rsp, using a short
// read deadline as a non-blocking stand-in for the original's
// FIONREAD-then-read pair.
func (l *Line) drainInbound() {
	buf := l.icwLine.Rsp
	if buf.Filled() {
		return
	}
	l.peer.SetReadDeadline(time.Now().Add(readPoll))
	n, err := l.peer.Read(buf.Data)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return // no data yet
		}
		l.trace("line %d: read failed: %v", l.Index, err)
		l.close()
		l.state = Disc
		return
	}
	if n == 0 {
		return
	}
	buf.Len = n
	buf.Ptr = 0
	buf.SetFilled(true)
	l.trace("line %d: received %d bytes from peer", l.Index, n)
	if l.Logger != nil && l.Debug.Has(icw.DebugBLU) {
		l.Logger.Print(icw.DumpBLU("rsp", buf))
	}
}

// reconnect polls briefly for a pending connection and, if one arrives,
// transitions the line to CONN.
func (l *Line) reconnect() {
	l.listener.SetDeadline(time.Now().Add(acceptPoll))
	conn, err := l.listener.Accept()
	if err != nil {
		return // no pending connection within the poll window
	}
	l.peer = conn
	l.state = Conn
	if l.Logger != nil {
		l.Logger.Printf("lineio: line %d: peer connected from %s", l.Index, conn.RemoteAddr())
	}
}
