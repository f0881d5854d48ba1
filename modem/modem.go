// Package modem maps bit streams onto the TS 36.211 QPSK and QAM
// constellations and performs hard minimum-distance demapping.
package modem

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Scheme selects the modulation order.
type Scheme int

const (
	QPSK Scheme = iota + 1
	QAM16
	QAM64
)

// BitsPerSymbol returns 2, 4 or 6.
func (s Scheme) BitsPerSymbol() int {
	switch s {
	case QPSK:
		return 2
	case QAM16:
		return 4
	case QAM64:
		return 6
	}
	return 0
}

func (s Scheme) String() string {
	switch s {
	case QPSK:
		return "qpsk"
	case QAM16:
		return "16qam"
	case QAM64:
		return "64qam"
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme resolves a scheme from its config-file name.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "qpsk":
		return QPSK, nil
	case "16qam":
		return QAM16, nil
	case "64qam":
		return QAM64, nil
	}
	return 0, fmt.Errorf("unknown modulation scheme %q", name)
}

// Constellation tables indexed by the bit group read MSB first. Amplitudes
// follow TS 36.211 section 7.1: Gray-mapped square constellations scaled to
// unit average symbol energy (1/sqrt(2), 1/sqrt(10), 1/sqrt(42)).
var constellations = map[Scheme][]complex128{
	QPSK:  buildConstellation(QPSK),
	QAM16: buildConstellation(QAM16),
	QAM64: buildConstellation(QAM64),
}

func buildConstellation(s Scheme) []complex128 {
	n := s.BitsPerSymbol()
	points := make([]complex128, 1<<n)
	for v := 0; v < 1<<n; v++ {
		b := make([]int, n)
		for i := 0; i < n; i++ {
			b[i] = (v >> (n - 1 - i)) & 1
		}
		var re, im, scale float64
		switch s {
		case QPSK:
			re = float64(1 - 2*b[0])
			im = float64(1 - 2*b[1])
			scale = 1 / math.Sqrt2
		case QAM16:
			// I level from (b0,b2), Q level from (b1,b3).
			re = float64(1-2*b[0]) * float64(2-(1-2*b[2]))
			im = float64(1-2*b[1]) * float64(2-(1-2*b[3]))
			scale = 1 / math.Sqrt(10)
		case QAM64:
			re = float64(1-2*b[0]) * float64(4-(1-2*b[2])*(2-(1-2*b[4])))
			im = float64(1-2*b[1]) * float64(4-(1-2*b[3])*(2-(1-2*b[5])))
			scale = 1 / math.Sqrt(42)
		}
		points[v] = complex(re*scale, im*scale)
	}
	return points
}

// Map converts bits to constellation symbols. The tail is zero-padded to a
// symbol boundary, so len(out) = ceil(len(bits)/bitsPerSymbol).
func Map(bits []byte, s Scheme) ([]complex128, error) {
	n := s.BitsPerSymbol()
	if n == 0 {
		return nil, fmt.Errorf("invalid modulation scheme %d", int(s))
	}
	for i, b := range bits {
		if b > 1 {
			return nil, fmt.Errorf("map: index %d: value %d is not a bit", i, b)
		}
	}
	points := constellations[s]
	numSyms := (len(bits) + n - 1) / n
	out := make([]complex128, numSyms)
	for i := 0; i < numSyms; i++ {
		v := 0
		for k := 0; k < n; k++ {
			v <<= 1
			if idx := i*n + k; idx < len(bits) {
				v |= int(bits[idx])
			}
		}
		out[i] = points[v]
	}
	return out, nil
}

// Demap performs hard maximum-likelihood demapping: each received symbol is
// assigned the bit group of the nearest constellation point in Euclidean
// distance. Output length is len(symbols)*bitsPerSymbol.
func Demap(symbols []complex128, s Scheme) ([]byte, error) {
	n := s.BitsPerSymbol()
	if n == 0 {
		return nil, fmt.Errorf("invalid modulation scheme %d", int(s))
	}
	points := constellations[s]
	out := make([]byte, 0, len(symbols)*n)
	for _, sym := range symbols {
		best, bestDist := 0, math.Inf(1)
		for v, p := range points {
			if d := cmplx.Abs(sym - p); d < bestDist {
				best, bestDist = v, d
			}
		}
		for k := n - 1; k >= 0; k-- {
			out = append(out, byte(best>>k)&1)
		}
	}
	return out, nil
}
