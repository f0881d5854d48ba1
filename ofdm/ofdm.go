// Package ofdm implements the multicarrier stage of the transmit chain:
// subcarrier packing with IFFT, cyclic prefix handling, FFT demodulation and
// one-tap zero-forcing equalization. Synchronization is assumed perfect; the
// cyclic prefix absorbs the channel's delay spread.
package ofdm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Params fixes the multicarrier numerology. Data subcarriers occupy FFT bins
// 1..ActiveCarriers; the DC bin stays empty.
type Params struct {
	NFFT           int
	ActiveCarriers int
	CPRatio        float64
}

// NewParams derives the FFT size as the smallest power of two above nc, so
// that bins 1..nc fit beside the empty DC bin.
func NewParams(nc int, cpRatio float64) (Params, error) {
	if nc <= 0 {
		return Params{}, errors.New("active carrier count must be positive")
	}
	if cpRatio < 0 || cpRatio >= 1 {
		return Params{}, fmt.Errorf("cp ratio %g outside [0,1)", cpRatio)
	}
	nfft := 1
	for nfft < nc+1 { // +1 keeps the DC bin free
		nfft <<= 1
	}
	return Params{NFFT: nfft, ActiveCarriers: nc, CPRatio: cpRatio}, nil
}

// CPLen returns the cyclic prefix length in samples.
func (p Params) CPLen() int { return int(float64(p.NFFT) * p.CPRatio) }

// Modulate packs symbols into OFDM blocks of ActiveCarriers subcarriers and
// transforms each to the time domain with sqrt(N) energy normalization. The
// last block is zero-padded. Returns the concatenated time signal and the
// number of blocks.
func (p Params) Modulate(symbols []complex128) ([]complex128, int) {
	nc := p.ActiveCarriers
	numBlocks := (len(symbols) + nc - 1) / nc
	if numBlocks == 0 {
		return nil, 0
	}
	fft := fourier.NewCmplxFFT(p.NFFT)
	norm := complex(math.Sqrt(float64(p.NFFT))/float64(p.NFFT), 0)
	out := make([]complex128, 0, numBlocks*p.NFFT)
	freq := make([]complex128, p.NFFT)
	time := make([]complex128, p.NFFT)
	for blk := 0; blk < numBlocks; blk++ {
		for i := range freq {
			freq[i] = 0
		}
		for i := 0; i < nc; i++ {
			if idx := blk*nc + i; idx < len(symbols) {
				freq[1+i] = symbols[idx]
			}
		}
		// Sequence is the unnormalized inverse transform; dividing by N and
		// scaling by sqrt(N) matches ifft(x)*sqrt(N).
		fft.Sequence(time, freq)
		for i := range time {
			out = append(out, time[i]*norm)
		}
	}
	return out, numBlocks
}

// AddCyclicPrefix prepends the last CPLen samples of each block to itself.
func (p Params) AddCyclicPrefix(signal []complex128, numBlocks int) []complex128 {
	cp := p.CPLen()
	out := make([]complex128, 0, numBlocks*(p.NFFT+cp))
	for blk := 0; blk < numBlocks; blk++ {
		block := signal[blk*p.NFFT : (blk+1)*p.NFFT]
		out = append(out, block[p.NFFT-cp:]...)
		out = append(out, block...)
	}
	return out
}

// RemoveCyclicPrefix strips the prefix from each received block. Trailing
// samples beyond the last whole block are discarded.
func (p Params) RemoveCyclicPrefix(rx []complex128) []complex128 {
	cp := p.CPLen()
	blockLen := p.NFFT + cp
	numBlocks := len(rx) / blockLen
	out := make([]complex128, 0, numBlocks*p.NFFT)
	for blk := 0; blk < numBlocks; blk++ {
		full := rx[blk*blockLen : (blk+1)*blockLen]
		out = append(out, full[cp:]...)
	}
	return out
}

// Demodulate transforms whole blocks back to the frequency domain with
// 1/sqrt(N) normalization and extracts the data bins.
func (p Params) Demodulate(rxTime []complex128) []complex128 {
	numBlocks := len(rxTime) / p.NFFT
	fft := fourier.NewCmplxFFT(p.NFFT)
	norm := complex(1/math.Sqrt(float64(p.NFFT)), 0)
	out := make([]complex128, 0, numBlocks*p.ActiveCarriers)
	coeff := make([]complex128, p.NFFT)
	for blk := 0; blk < numBlocks; blk++ {
		fft.Coefficients(coeff, rxTime[blk*p.NFFT:(blk+1)*p.NFFT])
		for i := 1; i <= p.ActiveCarriers; i++ {
			out = append(out, coeff[i]*norm)
		}
	}
	return out
}

// eqFloor guards the zero-forcing division against spectral nulls.
const eqFloor = 1e-10

// Equalize applies a one-tap zero-forcing equalizer: the received frequency
// symbols are divided by the channel frequency response at their subcarrier.
// h is the time-domain impulse response returned by the channel model; the
// same response applies to every block.
func (p Params) Equalize(rxFreq []complex128, h []complex128) []complex128 {
	fft := fourier.NewCmplxFFT(p.NFFT)
	padded := make([]complex128, p.NFFT)
	copy(padded, h)
	H := make([]complex128, p.NFFT)
	fft.Coefficients(H, padded)

	Hdata := make([]complex128, p.ActiveCarriers)
	for i := 0; i < p.ActiveCarriers; i++ {
		Hdata[i] = H[1+i]
		if cmplx.Abs(Hdata[i]) < eqFloor {
			Hdata[i] = complex(eqFloor, 0)
		}
	}
	out := make([]complex128, len(rxFreq))
	for i, y := range rxFreq {
		out[i] = y / Hdata[i%p.ActiveCarriers]
	}
	return out
}
