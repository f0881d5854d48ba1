// Package sim coordinates the end-to-end link simulation: it wires the
// coding, modulation, multicarrier and channel stages into a transmit/receive
// chain and reports link quality figures.
package sim

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/observe-l/ltesim/channel"
	"github.com/observe-l/ltesim/fec"
	"github.com/observe-l/ltesim/internal/img"
	"github.com/observe-l/ltesim/modem"
	"github.com/observe-l/ltesim/ofdm"
)

// Manager runs simulation scenarios. The metrics collector may be nil when no
// export is wanted.
type Manager struct {
	log     *log.Logger
	metrics *Metrics
	code    *fec.ConvCode
}

// NewManager builds a Manager logging through logger.
func NewManager(logger *log.Logger, metrics *Metrics) *Manager {
	return &Manager{log: logger, metrics: metrics, code: fec.NewConvCode()}
}

// Result summarizes one frame transmission.
type Result struct {
	BER         float64
	BitErrors   int
	PayloadBits int
	CRCOK       bool
	NoisePower  float64
	DecodeTime  time.Duration
	TxFrame     *image.Gray
	RxFrame     *image.Gray

	// rxPayload keeps the decoded bits for image reconstruction.
	rxPayload []byte
}

// DecodedBits returns the decoded payload bit stream, length-aligned to the
// transmitted payload.
func (r *Result) DecodedBits() []byte { return r.rxPayload }

// RunImageTransmission sends one image through the full chain described by
// the scenario and reconstructs it from the decoded bits.
func (m *Manager) RunImageTransmission(path string, cfg Scenario) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frame, err := img.Load(path, cfg.ImageSize)
	if err != nil {
		return nil, err
	}
	payload := img.ToBits(frame)
	res, err := m.RunBits(payload, cfg, rand.NewSource(cfg.Seed))
	if err != nil {
		return nil, err
	}
	res.TxFrame = frame
	res.RxFrame = img.FromBits(res.rxPayload, cfg.ImageSize)
	m.log.Info("transmission finished",
		"scheme", cfg.Modulation,
		"snr_db", cfg.SNRdB,
		"ber", res.BER,
		"crc_ok", res.CRCOK,
		"decode", res.DecodeTime)
	return res, nil
}

func (m *Manager) observeFrame(res *Result) {
	if m.metrics == nil {
		return
	}
	m.metrics.FramesTotal.Inc()
	m.metrics.BitErrorsTotal.Add(float64(res.BitErrors))
	if !res.CRCOK {
		m.metrics.CRCFailuresTotal.Inc()
	}
	m.metrics.DecodeSeconds.Observe(res.DecodeTime.Seconds())
}

// RunBits pushes a payload bit stream through transmitter, channel and
// receiver and compares the decoded bits against the input. The random source
// drives the channel only, so equal seeds reproduce runs exactly.
func (m *Manager) RunBits(payload []byte, cfg Scenario, src rand.Source) (*Result, error) {
	if err := fec.ValidateBits(payload); err != nil {
		return nil, err
	}
	scheme := cfg.Scheme()
	params, err := ofdm.NewParams(cfg.ActiveCarriers(), cfg.CPRatio())
	if err != nil {
		return nil, err
	}

	// Transmitter.
	coded := payload
	if cfg.FECEnabled() {
		withCRC, err := fec.CRCAttach(payload, fec.CRC24A)
		if err != nil {
			return nil, err
		}
		coded, err = m.code.Encode(withCRC, true)
		if err != nil {
			return nil, err
		}
	}
	scrambled, err := fec.Scramble(coded, cfg.ScrambleSeed)
	if err != nil {
		return nil, err
	}
	txSyms, err := modem.Map(scrambled, scheme)
	if err != nil {
		return nil, err
	}
	txTime, numBlocks := params.Modulate(txSyms)
	txSignal := params.AddCyclicPrefix(txTime, numBlocks)
	m.log.Debug("transmit chain built",
		"payload_bits", len(payload),
		"coded_bits", len(coded),
		"symbols", len(txSyms),
		"blocks", numBlocks,
		"samples", len(txSignal))

	// Channel.
	rxSignal, h, noisePower, err := channel.Multipath(txSignal, cfg.SNRdB, cfg.NumTaps, src)
	if err != nil {
		return nil, err
	}

	// Receiver.
	start := time.Now()
	rxTime := params.RemoveCyclicPrefix(rxSignal)
	rxFreq := params.Demodulate(rxTime)
	rxEq := params.Equalize(rxFreq, h)
	rxScrambled, err := modem.Demap(rxEq, scheme)
	if err != nil {
		return nil, err
	}
	// The modem pads the last symbol; drop the padding before descrambling.
	if len(rxScrambled) > len(scrambled) {
		rxScrambled = rxScrambled[:len(scrambled)]
	}
	rxCoded, err := fec.Scramble(rxScrambled, cfg.ScrambleSeed)
	if err != nil {
		return nil, err
	}

	var rxPayload []byte
	crcOK := true
	if cfg.FECEnabled() {
		decoded := m.code.DecodeTerminated(rxCoded, true)
		rxPayload, crcOK, err = fec.CRCCheck(decoded, fec.CRC24A)
		if err != nil {
			return nil, err
		}
	} else {
		rxPayload = rxCoded
	}
	// Align lengths for the comparison; heavy noise can shorten the decode.
	if len(rxPayload) > len(payload) {
		rxPayload = rxPayload[:len(payload)]
	}
	for len(rxPayload) < len(payload) {
		rxPayload = append(rxPayload, 0)
	}
	decodeTime := time.Since(start)

	errs := 0
	for i := range payload {
		if payload[i] != rxPayload[i] {
			errs++
		}
	}
	res := &Result{
		BitErrors:   errs,
		PayloadBits: len(payload),
		CRCOK:       crcOK,
		NoisePower:  noisePower,
		DecodeTime:  decodeTime,
		rxPayload:   rxPayload,
	}
	if len(payload) > 0 {
		res.BER = float64(errs) / float64(len(payload))
	}
	m.observeFrame(res)
	return res, nil
}

// BERCurve sweeps the scenario's SNR grid for every modulation scheme and
// returns one BER series per scheme, indexed like the grid. Points run
// concurrently; each point derives its own random stream from the scenario
// seed so the sweep stays reproducible regardless of scheduling.
func (m *Manager) BERCurve(ctx context.Context, payload []byte, cfg Scenario) ([]float64, map[modem.Scheme][]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	grid := cfg.SNRGrid()
	schemes := []modem.Scheme{modem.QPSK, modem.QAM16, modem.QAM64}
	curves := make(map[modem.Scheme][]float64, len(schemes))
	for _, s := range schemes {
		curves[s] = make([]float64, len(grid))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for si, scheme := range schemes {
		for gi, snr := range grid {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				point := cfg
				point.Modulation = scheme.String()
				point.SNRdB = snr
				src := rand.NewSource(cfg.Seed + uint64(si*len(grid)+gi+1))
				res, err := m.RunBits(payload, point, src)
				if err != nil {
					return fmt.Errorf("%s at %g dB: %w", scheme, snr, err)
				}
				curves[scheme][gi] = res.BER
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	m.log.Info("ber sweep finished", "points", len(grid)*len(schemes))
	return grid, curves, nil
}
