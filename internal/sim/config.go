package sim

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/observe-l/ltesim/modem"
)

// Bandwidth options follow the LTE channel bandwidth table: the occupied
// subcarrier count for each nominal bandwidth at 15 kHz spacing.
var bandwidthCarriers = map[string]int{
	"1.4MHz": 72,
	"3MHz":   180,
	"5MHz":   300,
	"10MHz":  600,
	"15MHz":  900,
	"20MHz":  1200,
}

// cpProfiles maps the cyclic prefix profile name to its prefix ratio.
var cpProfiles = map[string]float64{
	"normal":   0.07,
	"extended": 0.25,
}

// Scenario is one simulation configuration, loadable from a YAML file.
type Scenario struct {
	Bandwidth    string  `yaml:"bandwidth"`
	CPProfile    string  `yaml:"cp_profile"`
	Modulation   string  `yaml:"modulation"`
	SNRdB        float64 `yaml:"snr_db"`
	NumTaps      int     `yaml:"num_taps"`
	ImageSize    int     `yaml:"image_size"`
	EnableFEC    *bool   `yaml:"enable_fec"`
	Seed         uint64  `yaml:"seed"`
	ScrambleSeed uint32  `yaml:"scramble_seed"`

	// Sweep grid for BER curves.
	SNRMin   float64 `yaml:"snr_min"`
	SNRMax   float64 `yaml:"snr_max"`
	SNRSteps int     `yaml:"snr_steps"`
}

// DefaultScenario mirrors the defaults of a plain single-shot run: 5 MHz
// channel, normal prefix, QPSK at 15 dB over a 3-tap channel.
func DefaultScenario() Scenario {
	on := true
	return Scenario{
		Bandwidth:    "5MHz",
		CPProfile:    "normal",
		Modulation:   "qpsk",
		SNRdB:        15,
		NumTaps:      3,
		ImageSize:    250,
		EnableFEC:    &on,
		Seed:         1,
		ScrambleSeed: 2024,
		SNRMin:       0,
		SNRMax:       30,
		SNRSteps:     10,
	}
}

// LoadScenario reads a YAML scenario file, fills unset fields from the
// defaults and validates the result.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("load scenario: %w", err)
	}
	s := DefaultScenario()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Validate rejects unknown table entries and out-of-range numbers.
func (s Scenario) Validate() error {
	if _, ok := bandwidthCarriers[s.Bandwidth]; !ok {
		return fmt.Errorf("unknown bandwidth %q (known: %v)", s.Bandwidth, knownBandwidths())
	}
	if _, ok := cpProfiles[s.CPProfile]; !ok {
		return fmt.Errorf("unknown cp profile %q", s.CPProfile)
	}
	if _, err := modem.ParseScheme(s.Modulation); err != nil {
		return err
	}
	if s.NumTaps <= 0 {
		return fmt.Errorf("num_taps %d must be positive", s.NumTaps)
	}
	if s.ImageSize <= 0 {
		return fmt.Errorf("image_size %d must be positive", s.ImageSize)
	}
	if s.ScrambleSeed == 0 || s.ScrambleSeed >= 1<<31 {
		return fmt.Errorf("scramble_seed %d outside [1, 2^31)", s.ScrambleSeed)
	}
	if s.SNRSteps < 2 {
		return fmt.Errorf("snr_steps %d must be at least 2", s.SNRSteps)
	}
	if s.SNRMax < s.SNRMin {
		return fmt.Errorf("snr_max %g below snr_min %g", s.SNRMax, s.SNRMin)
	}
	return nil
}

// ActiveCarriers resolves the bandwidth name to its subcarrier count.
func (s Scenario) ActiveCarriers() int { return bandwidthCarriers[s.Bandwidth] }

// CPRatio resolves the prefix profile name to its ratio.
func (s Scenario) CPRatio() float64 { return cpProfiles[s.CPProfile] }

// Scheme resolves the modulation name. Validate must have passed.
func (s Scenario) Scheme() modem.Scheme {
	scheme, _ := modem.ParseScheme(s.Modulation)
	return scheme
}

// FECEnabled reports whether the coding chain is active; nil means enabled.
func (s Scenario) FECEnabled() bool { return s.EnableFEC == nil || *s.EnableFEC }

// SNRGrid returns the evenly spaced sweep points from SNRMin to SNRMax.
func (s Scenario) SNRGrid() []float64 {
	grid := make([]float64, s.SNRSteps)
	step := (s.SNRMax - s.SNRMin) / float64(s.SNRSteps-1)
	for i := range grid {
		grid[i] = s.SNRMin + float64(i)*step
	}
	return grid
}

func knownBandwidths() []string {
	names := make([]string, 0, len(bandwidthCarriers))
	for name := range bandwidthCarriers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
