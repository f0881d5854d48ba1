package fec

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestScrambleInvolution(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, n := range []int{0, 1, 31, 64, 500} {
		in := randomBits(r, n)
		once, err := Scramble(in, 2024)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Scramble(once, 2024)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(twice, in) {
			t.Fatalf("n=%d: double scramble is not the identity", n)
		}
	}
}

func TestScrambleActuallyScrambles(t *testing.T) {
	in := make([]byte, 256)
	out, err := Scramble(in, 2024)
	if err != nil {
		t.Fatal(err)
	}
	ones := 0
	for _, b := range out {
		ones += int(b)
	}
	// The PN sequence over an all-zero input should look roughly balanced.
	if ones < 64 || ones > 192 {
		t.Fatalf("PN sequence weight %d/256 looks degenerate", ones)
	}
}

func TestScrambleSeedValidation(t *testing.T) {
	if _, err := Scramble([]byte{1, 0}, 0); !errors.Is(err, ErrZeroSeed) {
		t.Fatalf("expected ErrZeroSeed, got %v", err)
	}
	if _, err := Scramble([]byte{2}, 1); !errors.Is(err, ErrNotABit) {
		t.Fatalf("expected ErrNotABit, got %v", err)
	}
}
