package fec

import (
	"errors"
	"fmt"
)

// Additive scrambling against a fixed-seed pseudo-random sequence. XOR is its
// own inverse, so the same call descrambles when given the same seed.

// ErrZeroSeed rejects the degenerate all-zero LFSR state.
var ErrZeroSeed = errors.New("scramble seed must be nonzero")

// Scramble XORs bits with the output of a 31-bit Fibonacci LFSR
// (x^31 + x^28 + 1) seeded by seed. Output length equals input length.
func Scramble(bits []byte, seed uint32) ([]byte, error) {
	if err := ValidateBits(bits); err != nil {
		return nil, fmt.Errorf("scramble: %w", err)
	}
	state := seed & 0x7FFFFFFF
	if state == 0 {
		return nil, ErrZeroSeed
	}
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = b ^ byte(state&1)
		fb := (state ^ state>>3) & 1
		state = state>>1 | fb<<30
	}
	return out, nil
}
