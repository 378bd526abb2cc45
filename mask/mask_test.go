package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSet(t *testing.T) {
	assert.True(t, IsSet(0b1101_1000, 1))
	assert.True(t, IsSet(0b1101_1000, 2))
	assert.False(t, IsSet(0b1101_1000, 3))
	assert.True(t, IsSet(0b1101_1000, 4))
}

func TestUnset(t *testing.T) {
	assert.Equal(t, Unset(0b1111_0000, 5, 8), byte(0b1111_0000))
	assert.Equal(t, Unset(0b1111_1111, 5, 8), byte(0b1111_0000))
}

func TestWord16(t *testing.T) {
	assert.Equal(t, Word16(0x40, 0xC1), uint16(0x40C1))
	hi, lo := SplitWord16(0x40C1)
	assert.Equal(t, hi, byte(0x40))
	assert.Equal(t, lo, byte(0xC1))

	// round trip across the full byte range
	for hi := 0; hi < 256; hi += 17 {
		for lo := 0; lo < 256; lo += 17 {
			w := Word16(byte(hi), byte(lo))
			gotHi, gotLo := SplitWord16(w)
			assert.Equal(t, gotHi, byte(hi))
			assert.Equal(t, gotLo, byte(lo))
		}
	}
}

func TestWord20(t *testing.T) {
	assert.Equal(t, Word20(0x9, 0x6, 0x7E), uint32(0x967E))
	nibble, mid, lo := SplitWord20(Word20(0x9, 0x6, 0x7E))
	assert.Equal(t, nibble, byte(0x9))
	assert.Equal(t, mid, byte(0x6))
	assert.Equal(t, lo, byte(0x7E))

	// nibble is truncated to 4 bits on the way in
	assert.Equal(t, Word20(0xFF, 0, 0), Word20(0x0F, 0, 0))
}
