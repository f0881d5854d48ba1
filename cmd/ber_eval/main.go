// Command ber_eval sweeps SNR for every modulation scheme using the bits of a
// real image and writes the BER curves as CSV plus a markdown summary.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/observe-l/ltesim/internal/img"
	"github.com/observe-l/ltesim/internal/sim"
	"github.com/observe-l/ltesim/modem"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "YAML scenario file (defaults apply when empty)")
		imagePath    = flag.String("image", "", "image whose bits drive the sweep (required)")
		csvPath      = flag.String("csv", "ber_curves.csv", "CSV output path")
		reportPath   = flag.String("report", "ber_report.md", "markdown summary output path")
		metricsAddr  = flag.String("metrics-addr", "", "serve Prometheus metrics on this address during the sweep")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if *imagePath == "" {
		logger.Error("missing -image")
		flag.Usage()
		os.Exit(2)
	}

	cfg := sim.DefaultScenario()
	if *scenarioPath != "" {
		var err error
		cfg, err = sim.LoadScenario(*scenarioPath)
		if err != nil {
			logger.Fatal("scenario", "err", err)
		}
	}

	reg := prometheus.NewRegistry()
	metrics := sim.NewMetrics(reg)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("metrics listening", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server", "err", err)
			}
		}()
	}

	frame, err := img.Load(*imagePath, cfg.ImageSize)
	if err != nil {
		logger.Fatal("load image", "err", err)
	}
	payload := img.ToBits(frame)
	logger.Info("sweep starting",
		"payload_bits", len(payload),
		"snr_min", cfg.SNRMin,
		"snr_max", cfg.SNRMax,
		"steps", cfg.SNRSteps)

	mgr := sim.NewManager(logger, metrics)
	grid, curves, err := mgr.BERCurve(context.Background(), payload, cfg)
	if err != nil {
		logger.Fatal("sweep", "err", err)
	}
	if err := writeCSV(*csvPath, grid, curves); err != nil {
		logger.Fatal("write csv", "err", err)
	}
	if err := writeSummary(*reportPath, cfg, grid, curves); err != nil {
		logger.Fatal("write report", "err", err)
	}
	logger.Info("done", "csv", *csvPath, "report", *reportPath)
}

var sweepSchemes = []modem.Scheme{modem.QPSK, modem.QAM16, modem.QAM64}

func writeCSV(path string, grid []float64, curves map[modem.Scheme][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"scheme", "snr_db", "ber"}); err != nil {
		return err
	}
	for _, scheme := range sweepSchemes {
		for i, snr := range grid {
			row := []string{
				scheme.String(),
				strconv.FormatFloat(snr, 'f', 2, 64),
				strconv.FormatFloat(curves[scheme][i], 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeSummary(path string, cfg sim.Scenario, grid []float64, curves map[modem.Scheme][]float64) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# BER sweep (%s, %s cp, %d taps, fec=%v)\n\n",
		cfg.Bandwidth, cfg.CPProfile, cfg.NumTaps, cfg.FECEnabled())
	b.WriteString("| SNR (dB) |")
	for _, scheme := range sweepSchemes {
		fmt.Fprintf(&b, " %s |", scheme)
	}
	b.WriteString("\n|---|")
	for range sweepSchemes {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, snr := range grid {
		fmt.Fprintf(&b, "| %.1f |", snr)
		for _, scheme := range sweepSchemes {
			fmt.Fprintf(&b, " %.6f |", curves[scheme][i])
		}
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
