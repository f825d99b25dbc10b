package transcript

import "encoding/binary"

// leadingZeroBits counts the number of leading zero bits of h.
func leadingZeroBits(h [32]byte) int {
	count := 0
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// PowGrind searches for an 8-byte nonce such that
// Keccak(seed || nonce) has at least bits leading zero bits (spec 4.7 step
// 11). It panics if no nonce in the uint64 range satisfies the difficulty,
// which would indicate an unreasonable bits parameter, a caller bug.
func PowGrind(seed [32]byte, bits int) uint64 {
	var nonce uint64
	for {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)
		h := keccak(seed[:], buf[:])
		if leadingZeroBits(h) >= bits {
			return nonce
		}
		nonce++
		if nonce == 0 {
			panic("transcript: proof-of-work search exhausted the nonce space")
		}
	}
}

// PowVerify checks that Keccak(seed || nonce) meets the claimed difficulty.
func PowVerify(seed [32]byte, nonce uint64, bits int) bool {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	h := keccak(seed[:], buf[:])
	return leadingZeroBits(h) >= bits
}
