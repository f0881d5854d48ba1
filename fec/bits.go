package fec

import (
	"errors"
	"fmt"
)

// Bit streams travel as []byte with every element strictly 0 or 1. A plain
// byte buffer keeps the hot decode loop cache-friendly; validation happens at
// package entry points so internal code can assume clean values.

// ErrNotABit is returned when an input byte is neither 0 nor 1.
var ErrNotABit = errors.New("bit value outside {0,1}")

// ValidateBits checks that every element of bits is 0 or 1.
func ValidateBits(bits []byte) error {
	for i, b := range bits {
		if b > 1 {
			return fmt.Errorf("index %d: value %d: %w", i, b, ErrNotABit)
		}
	}
	return nil
}
