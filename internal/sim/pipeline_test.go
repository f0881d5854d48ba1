package sim

import (
	"context"
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	xrand "golang.org/x/exp/rand"
)

func testManager(metrics *Metrics) *Manager {
	return NewManager(log.New(io.Discard), metrics)
}

func randomPayload(r *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(r.Intn(2))
	}
	return bits
}

func cleanScenario() Scenario {
	s := DefaultScenario()
	s.SNRdB = 200
	s.NumTaps = 1
	return s
}

func TestRunBitsCleanChannel(t *testing.T) {
	m := testManager(nil)
	r := rand.New(rand.NewSource(21))
	payload := randomPayload(r, 2000)
	res, err := m.RunBits(payload, cleanScenario(), xrand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	if res.BER != 0 {
		t.Fatalf("clean channel BER = %g, want 0", res.BER)
	}
	if !res.CRCOK {
		t.Fatal("clean channel CRC failed")
	}
	if res.PayloadBits != len(payload) {
		t.Fatalf("payload bits %d, want %d", res.PayloadBits, len(payload))
	}
}

func TestRunBitsCleanChannelAllSchemes(t *testing.T) {
	m := testManager(nil)
	r := rand.New(rand.NewSource(22))
	payload := randomPayload(r, 1000)
	for _, mod := range []string{"qpsk", "16qam", "64qam"} {
		cfg := cleanScenario()
		cfg.Modulation = mod
		res, err := m.RunBits(payload, cfg, xrand.NewSource(2))
		if err != nil {
			t.Fatal(err)
		}
		if res.BER != 0 || !res.CRCOK {
			t.Fatalf("%s: ber=%g crc=%v", mod, res.BER, res.CRCOK)
		}
	}
}

func TestRunBitsCleanMultipath(t *testing.T) {
	// The equalizer must undo a frequency-selective channel when no noise is
	// present.
	m := testManager(nil)
	r := rand.New(rand.NewSource(23))
	payload := randomPayload(r, 2000)
	cfg := cleanScenario()
	cfg.NumTaps = 5
	res, err := m.RunBits(payload, cfg, xrand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}
	if res.BER != 0 || !res.CRCOK {
		t.Fatalf("multipath clean run: ber=%g crc=%v", res.BER, res.CRCOK)
	}
}

func TestRunBitsFECDisabled(t *testing.T) {
	m := testManager(nil)
	r := rand.New(rand.NewSource(24))
	payload := randomPayload(r, 1500)
	cfg := cleanScenario()
	off := false
	cfg.EnableFEC = &off
	res, err := m.RunBits(payload, cfg, xrand.NewSource(4))
	if err != nil {
		t.Fatal(err)
	}
	if res.BER != 0 {
		t.Fatalf("uncoded clean channel BER = %g, want 0", res.BER)
	}
	if !res.CRCOK {
		t.Fatal("uncoded run must report CRC ok")
	}
}

func TestRunBitsDeterministicPerSeed(t *testing.T) {
	m := testManager(nil)
	r := rand.New(rand.NewSource(25))
	payload := randomPayload(r, 1000)
	cfg := DefaultScenario()
	cfg.SNRdB = 4

	a, err := m.RunBits(payload, cfg, xrand.NewSource(99))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.RunBits(payload, cfg, xrand.NewSource(99))
	if err != nil {
		t.Fatal(err)
	}
	if a.BER != b.BER || a.CRCOK != b.CRCOK {
		t.Fatalf("same seed diverged: %g/%v vs %g/%v", a.BER, a.CRCOK, b.BER, b.CRCOK)
	}
}

func TestRunBitsRejectsNonBits(t *testing.T) {
	m := testManager(nil)
	if _, err := m.RunBits([]byte{0, 1, 7}, cleanScenario(), xrand.NewSource(5)); err == nil {
		t.Fatal("expected error for non-bit payload")
	}
}

func TestRunBitsUpdatesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := testManager(NewMetrics(reg))
	r := rand.New(rand.NewSource(26))
	payload := randomPayload(r, 800)
	if _, err := m.RunBits(payload, cleanScenario(), xrand.NewSource(6)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.metrics.FramesTotal); got != 1 {
		t.Fatalf("frames_total = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.metrics.BitErrorsTotal); got != 0 {
		t.Fatalf("bit_errors_total = %g, want 0", got)
	}
	if got := testutil.ToFloat64(m.metrics.CRCFailuresTotal); got != 0 {
		t.Fatalf("crc_failures_total = %g, want 0", got)
	}
}

func TestBERCurveShapeAndCleanLimit(t *testing.T) {
	m := testManager(nil)
	r := rand.New(rand.NewSource(27))
	payload := randomPayload(r, 600)
	cfg := DefaultScenario()
	cfg.NumTaps = 1
	cfg.SNRMin, cfg.SNRMax, cfg.SNRSteps = 100, 200, 3

	grid, curves, err := m.BERCurve(context.Background(), payload, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 3 {
		t.Fatalf("grid length %d, want 3", len(grid))
	}
	if len(curves) != 3 {
		t.Fatalf("%d curves, want one per scheme", len(curves))
	}
	for scheme, curve := range curves {
		if len(curve) != len(grid) {
			t.Fatalf("%s: curve length %d, want %d", scheme, len(curve), len(grid))
		}
		// At 100+ dB every point decodes perfectly.
		for i, ber := range curve {
			if ber != 0 {
				t.Fatalf("%s: BER %g at %g dB, want 0", scheme, ber, grid[i])
			}
		}
	}
}

func TestBERCurveHonorsCancellation(t *testing.T) {
	m := testManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	payload := []byte{1, 0, 1, 1}
	cfg := DefaultScenario()
	if _, _, err := m.BERCurve(ctx, payload, cfg); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
