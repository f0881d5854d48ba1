// Package channel models the propagation impairments between transmitter and
// receiver: additive white Gaussian noise calibrated to a target SNR, and a
// fixed-profile multipath channel with unit-energy impulse response.
package channel

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// AWGN adds complex Gaussian noise sized so that the ratio of measured signal
// power to total noise power equals snrDB. The per-dimension variance is half
// the complex noise power. Returns the noisy signal and the noise power
// E{|n|^2}.
func AWGN(signal []complex128, snrDB float64, src rand.Source) ([]complex128, float64) {
	var sigPower float64
	for _, s := range signal {
		sigPower += real(s)*real(s) + imag(s)*imag(s)
	}
	if len(signal) > 0 {
		sigPower /= float64(len(signal))
	}
	noisePower := sigPower / math.Pow(10, snrDB/10)

	normal := distuv.Normal{Mu: 0, Sigma: math.Sqrt(noisePower / 2), Src: src}
	out := make([]complex128, len(signal))
	for i, s := range signal {
		out[i] = s + complex(normal.Rand(), normal.Rand())
	}
	return out, noisePower
}

// multipathProfile is the tap magnitude profile before energy normalization:
// a strong direct path, a cluster of weak early reflections and two late
// strong echoes.
var multipathProfile = []float64{1.0, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.5, 0.5}

// ImpulseResponse returns the first numTaps taps of the fixed multipath
// profile, zero-padded past the profile length and normalized to unit energy.
// A single tap yields the flat channel h = [1].
func ImpulseResponse(numTaps int) ([]complex128, error) {
	if numTaps <= 0 {
		return nil, errors.New("tap count must be positive")
	}
	if numTaps == 1 {
		return []complex128{1}, nil
	}
	h := make([]complex128, numTaps)
	var energy float64
	for i := 0; i < numTaps && i < len(multipathProfile); i++ {
		h[i] = complex(multipathProfile[i], 0)
		energy += multipathProfile[i] * multipathProfile[i]
	}
	// Unit channel energy keeps the SNR calibration independent of tap count.
	scale := complex(1/math.Sqrt(energy), 0)
	for i := range h {
		h[i] *= scale
	}
	return h, nil
}

// Multipath convolves the signal with the fixed tap profile, truncates the
// convolution tail to the input length (perfect synchronization; the cyclic
// prefix absorbs the inter-block interference), then adds AWGN at snrDB.
// Returns the received signal, the impulse response for the equalizer and the
// noise power.
func Multipath(signal []complex128, snrDB float64, numTaps int, src rand.Source) ([]complex128, []complex128, float64, error) {
	h, err := ImpulseResponse(numTaps)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("multipath: %w", err)
	}
	convolved := convolve(signal, h)
	rx, noisePower := AWGN(convolved, snrDB, src)
	return rx, h, noisePower, nil
}

// convolve computes the linear convolution of x and h truncated to len(x).
func convolve(x, h []complex128) []complex128 {
	out := make([]complex128, len(x))
	for n := range out {
		var acc complex128
		for k, tap := range h {
			if n-k < 0 {
				break
			}
			acc += tap * x[n-k]
		}
		out[n] = acc
	}
	return out
}
