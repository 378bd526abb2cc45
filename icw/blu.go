package icw

import (
	"errors"
	"sync/atomic"
)

// ErrBufferOverrun is returned when an append pointer reaches the end of a
// BLU buffer. Per the error taxonomy, this is fatal to the line that
// raised it, not to the process.
var ErrBufferOverrun = errors.New("icw: BLU buffer overrun")

// BLUBuffer is one direction's staging buffer for a complete SDLC frame
// (Basic Link Unit). Ptr and Len are plain fields: exactly one side ever
// advances Ptr at a time (the scanner, for its own read or append cursor),
// and Len/Data are only meaningful to the consumer once it has observed
// the FILLED state, which a single atomic bool publishes with the
// necessary ordering.
type BLUBuffer struct {
	Data []byte
	Ptr  int
	Len  int

	state atomic.Bool
}

// NewBLUBuffer allocates an empty buffer of the given capacity.
func NewBLUBuffer(size int) *BLUBuffer {
	return &BLUBuffer{Data: make([]byte, size)}
}

// Filled reports the buffer's handoff state: true means FILLED.
func (b *BLUBuffer) Filled() bool { return b.state.Load() }

// SetFilled publishes a new handoff state.
func (b *BLUBuffer) SetFilled(v bool) { b.state.Store(v) }

// Reset clears the buffer to EMPTY with both cursors at zero. Used on
// PCF=0 entry and when a line is force-reset after a fault.
func (b *BLUBuffer) Reset() {
	b.Ptr = 0
	b.Len = 0
	b.state.Store(false)
}

// Append writes c at the current pointer and advances it, returning
// ErrBufferOverrun if the buffer is already full.
func (b *BLUBuffer) Append(c byte) error {
	if b.Ptr >= len(b.Data) {
		return ErrBufferOverrun
	}
	b.Data[b.Ptr] = c
	b.Ptr++
	return nil
}

// ReadByte returns the byte at the current pointer and advances it,
// returning ErrBufferOverrun if the pointer has run off the end of the
// underlying array.
func (b *BLUBuffer) ReadByte() (byte, error) {
	if b.Ptr >= len(b.Data) {
		return 0, ErrBufferOverrun
	}
	c := b.Data[b.Ptr]
	b.Ptr++
	return c, nil
}
