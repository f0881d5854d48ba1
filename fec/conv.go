package fec

import (
	"fmt"
	"math/bits"
)

// Rate-1/3 convolutional code of TS 36.212 section 5.1.3.1: constraint
// length 7, generators G0=133, G1=171, G2=165 (octal). The shift register
// holds the current input at bit 6 and the oldest memory cell at bit 0:
//
//	reg   = (u << 6) | state          (7 bits)
//	out_i = popcount(reg & G_i) mod 2  for i = 0,1,2
//	state' = ((u << 5) | (state >> 1)) & 0x3F
//
// Output bits are emitted G0, G1, G2 per step; the decoder depends on that
// ordering.

const (
	convConstraintLen = 7
	convMemory        = convConstraintLen - 1
	numStates         = 1 << convMemory
	stateMask         = numStates - 1
)

// ConvCode binds the generator set to its precomputed trellis. The value is
// immutable after construction and safe to share across goroutines.
type ConvCode struct {
	Generators [3]uint32
	trellis    *Trellis
}

// NewConvCode builds the TS 36.212 code and compiles its 64-state trellis.
func NewConvCode() *ConvCode {
	c := &ConvCode{Generators: [3]uint32{0o133, 0o171, 0o165}}
	c.trellis = newTrellis(c.Generators)
	return c
}

// Memory returns the number of stored past input bits (K-1 = 6).
func (c *ConvCode) Memory() int { return convMemory }

// Trellis exposes the compiled transition tables.
func (c *ConvCode) Trellis() *Trellis { return c.trellis }

// convStep produces the three output bits for input u in state s and returns
// the successor state.
func convStep(gens [3]uint32, s uint32, u uint32, out []byte) uint32 {
	reg := u<<convMemory | s
	for i, g := range gens {
		out[i] = byte(bits.OnesCount32(reg&g) & 1)
	}
	return (u<<(convMemory-1) | s>>1) & stateMask
}

// Encode produces the rate-1/3 encoding of bits starting from the all-zero
// state. With terminate, six zero tail bits are appended so the trellis ends
// in state 0; output length is 3*(len(bits)+6), else 3*len(bits).
func (c *ConvCode) Encode(bits []byte, terminate bool) ([]byte, error) {
	if err := ValidateBits(bits); err != nil {
		return nil, fmt.Errorf("conv encode: %w", err)
	}
	n := len(bits)
	if terminate {
		n += convMemory
	}
	out := make([]byte, 3*n)
	state := uint32(0)
	for t := 0; t < n; t++ {
		var u uint32
		if t < len(bits) {
			u = uint32(bits[t])
		}
		state = convStep(c.Generators, state, u, out[3*t:3*t+3])
	}
	return out, nil
}
