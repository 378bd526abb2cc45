// Package mask provides operations to extract and manipulate ranges of bits
// from a byte.
//
// All byte indices must be 1-indexed, and ranges must be inclusive.

package mask

// A byteIndex provides compile-time safety when indexing into a byte.
type byteIndex byte

const (
	I1 byteIndex = iota + 1
	I2
	I3
	I4
	I5
	I6
	I7
	I8
)

// https://pkg.go.dev/golang.org/x/text/internal/gen/bitfield
// https://cs.opensource.google/go/x/text/+/refs/tags/v0.18.0:internal/gen/bitfield/bitfield_test.go;l=16

// func checkByteIndex(n byteIndex) {
// 	// https://github.com/golang/go/issues/29649#issuecomment-454585328
// 	// https://github.com/golang/go/issues/29649#issuecomment-454820179
// 	//
// 	// Go does not allow us to model a constrained int with a type, hence
// 	// this helper func
// 	if n < 1 || n > 8 {
// 		panic("Invalid byte index provided -- must fall in the range [1,8].")
// 	}
// }

func checkByteRange(start byteIndex, end byteIndex) {
	if start > end {
		panic("Invalid range provided -- start must <= end.")
	}
}

// IsSet reports whether the bit at pos is 1.
func IsSet(b byte, pos byteIndex) bool {
	return b&(1<<(8-pos)) != 0
}

// Unset clears the existing bits of b in the inclusive range [start:end].
func Unset(b byte, start byteIndex, end byteIndex) byte {
	checkByteRange(start, end)
	for ; start <= end; start++ {
		// hole := byte(math.MaxUint8 - 1<<(8-start))
		hole := byte(^(1 << byte(8-start))) // a full byte, with 1 bit unset
		b &= hole
	}
	return b
}

// Word16 packs hi and lo into a 16-bit word with hi occupying the upper
// byte, e.g. Word16(scf, pdf) for a composite two-byte register.
func Word16(hi byte, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// SplitWord16 is the inverse of Word16.
func SplitWord16(w uint16) (hi byte, lo byte) {
	return byte(w >> 8), byte(w)
}

// Word20 packs two nibbles and a byte into a 16-bit value as
// nibble<<12 | mid<<8 | lo, e.g. Word20(lcd, pcf, sdf) for register 0x45.
// Only the low four bits of nibble and mid are kept.
func Word20(nibble byte, mid byte, lo byte) uint32 {
	return uint32(nibble&0x0F)<<12 | uint32(mid&0x0F)<<8 | uint32(lo)
}

// SplitWord20 is the inverse of Word20.
func SplitWord20(w uint32) (nibble byte, mid byte, lo byte) {
	return byte(w>>12) & 0x0F, byte(w>>8) & 0x0F, byte(w)
}
