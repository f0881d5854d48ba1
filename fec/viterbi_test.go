package fec

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestViterbiNoiseFree(t *testing.T) {
	code := NewConvCode()
	b := []byte{1, 0, 1, 1, 0, 0, 1, 0}
	coded, err := code.Encode(b, true)
	if err != nil {
		t.Fatal(err)
	}
	got := code.DecodeTerminated(coded, true)
	if !bytes.Equal(got, b) {
		t.Fatalf("decoded %v, want %v", got, b)
	}
}

func TestViterbiKeepTail(t *testing.T) {
	code := NewConvCode()
	b := []byte{1, 1, 0, 1}
	coded, err := code.Encode(b, true)
	if err != nil {
		t.Fatal(err)
	}
	got := code.DecodeTerminated(coded, false)
	want := append(append([]byte{}, b...), 0, 0, 0, 0, 0, 0)
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %v, want %v", got, want)
	}
}

func TestViterbiCorrectsEverySingleFlip(t *testing.T) {
	code := NewConvCode()
	b := []byte{1, 1, 0, 1, 0, 0, 1, 0, 1, 1, 1, 0}
	coded, err := code.Encode(b, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := range coded {
		coded[i] ^= 1
		got := code.DecodeTerminated(coded, true)
		coded[i] ^= 1
		if !bytes.Equal(got, b) {
			t.Fatalf("flip at coded bit %d not corrected: got %v", i, got)
		}
	}
}

func TestViterbiCorrectsSparseBursts(t *testing.T) {
	// Free distance of the (133,171,165) code is 15; any weight-3 pattern
	// inside an 18-bit window stays well below the correction threshold.
	code := NewConvCode()
	r := rand.New(rand.NewSource(5))
	for trial := 0; trial < 50; trial++ {
		b := randomBits(r, 120)
		coded, err := code.Encode(b, true)
		if err != nil {
			t.Fatal(err)
		}
		start := r.Intn(len(coded) - 18)
		for _, off := range r.Perm(18)[:3] {
			coded[start+off] ^= 1
		}
		got := code.DecodeTerminated(coded, true)
		if !bytes.Equal(got, b) {
			t.Fatalf("trial %d: weight-3 burst at %d not corrected", trial, start)
		}
	}
}

func TestViterbiFractionalSymbolsDiscarded(t *testing.T) {
	code := NewConvCode()
	in := make([]byte, 3001)
	got := code.DecodeTerminated(in, true)
	if len(got) != 994 {
		t.Fatalf("3001 coded bits: decoded %d info bits, want 994", len(got))
	}
	got = code.DecodeTerminated(in, false)
	if len(got) != 1000 {
		t.Fatalf("3001 coded bits without tail drop: %d bits, want 1000", len(got))
	}
}

func TestViterbiDegenerateInputs(t *testing.T) {
	code := NewConvCode()
	if got := code.DecodeTerminated(nil, true); len(got) != 0 {
		t.Fatalf("empty input: got %d bits", len(got))
	}
	if got := code.DecodeTerminated([]byte{1, 0}, true); len(got) != 0 {
		t.Fatalf("2-bit input: got %d bits", len(got))
	}
	// Fewer steps than the tail length still yields an empty stream.
	if got := code.DecodeTerminated([]byte{1, 0, 1, 1, 1, 1}, true); len(got) != 0 {
		t.Fatalf("2-step input with dropTail: got %d bits", len(got))
	}
}

func TestViterbiDeterministicTieBreak(t *testing.T) {
	// Heavily corrupted input has many metric ties; two decodes of the same
	// input must agree.
	code := NewConvCode()
	r := rand.New(rand.NewSource(6))
	in := randomBits(r, 300)
	first := code.DecodeTerminated(in, false)
	second := code.DecodeTerminated(in, false)
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs decoded differently")
	}
}
