package config

import (
	"encoding/json"
	"math"
	"os"

	"github.com/LdDl/posedrift/drift"
	"github.com/LdDl/posedrift/locate"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned for values which can't be clamped to a safe range
var ErrInvalidConfig = errors.New("invalid config")

// Config holds deviation thresholds and localization parameters.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Deviation check
	TranslationTolerance float64 `json:"translation_tolerance"`
	RotationTolerance    float64 `json:"rotation_tolerance"`
	HistoryLimit         int     `json:"history_limit"`
	Smoothing            bool    `json:"smoothing"`

	// ORB detector
	Features    int     `json:"features"`
	ScaleFactor float64 `json:"scale_factor"`
	Levels      int     `json:"levels"`

	// Matching
	K                   int     `json:"k"`
	UniquenessThreshold float64 `json:"uniqueness_threshold"`
	ScaleIncrement      float64 `json:"scale_increment"`
	RotationBins        int     `json:"rotation_bins"`
	MinMatches          int     `json:"min_matches"`
	RansacThreshold     float64 `json:"ransac_threshold"`
	RansacIterations    int     `json:"ransac_iterations"`
	Seed                int64   `json:"seed"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	options := locate.DefaultOptions()
	return &Config{
		Debug:                false,
		TranslationTolerance: drift.DefaultTranslationTolerance,
		RotationTolerance:    drift.DefaultRotationTolerance,
		HistoryLimit:         drift.DefaultHistoryLimit,
		Smoothing:            false,
		Features:             9000,
		ScaleFactor:          1.5,
		Levels:               4,
		K:                    options.K,
		UniquenessThreshold:  options.UniquenessThreshold,
		ScaleIncrement:       options.ScaleIncrement,
		RotationBins:         options.RotationBins,
		MinMatches:           options.MinMatches,
		RansacThreshold:      options.RansacThreshold,
		RansacIterations:     options.RansacIterations,
		Seed:                 options.Seed,
	}
}

// Validate clamps/normalizes values to safe ranges.
// Non-finite floats can't be clamped meaningfully and give ErrInvalidConfig.
func (c *Config) Validate() error {
	floats := []struct {
		name  string
		value float64
	}{
		{"translation_tolerance", c.TranslationTolerance},
		{"rotation_tolerance", c.RotationTolerance},
		{"scale_factor", c.ScaleFactor},
		{"uniqueness_threshold", c.UniquenessThreshold},
		{"scale_increment", c.ScaleIncrement},
		{"ransac_threshold", c.RansacThreshold},
	}
	for _, f := range floats {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Wrapf(ErrInvalidConfig, "%s is %v", f.name, f.value)
		}
	}
	if c.TranslationTolerance < 0 {
		c.TranslationTolerance = drift.DefaultTranslationTolerance
	}
	if c.RotationTolerance < 0 || c.RotationTolerance >= 180 {
		c.RotationTolerance = drift.DefaultRotationTolerance
	}
	if c.HistoryLimit < 0 {
		c.HistoryLimit = 0
	}
	if c.Features <= 0 {
		c.Features = 9000
	}
	if c.ScaleFactor <= 1 {
		c.ScaleFactor = 1.5
	}
	if c.Levels <= 0 {
		c.Levels = 4
	}
	if c.K < 2 {
		c.K = 2
	}
	if c.UniquenessThreshold <= 0 || c.UniquenessThreshold > 1 {
		c.UniquenessThreshold = 0.80
	}
	if c.ScaleIncrement <= 1 {
		c.ScaleIncrement = 1.5
	}
	if c.RotationBins <= 0 || c.RotationBins > 360 {
		c.RotationBins = 20
	}
	if c.MinMatches < 4 {
		c.MinMatches = 4
	}
	if c.RansacThreshold <= 0 {
		c.RansacThreshold = 2.0
	}
	if c.RansacIterations <= 0 {
		c.RansacIterations = 2000
	}
	return nil
}

// Tolerance returns deviation thresholds
func (c *Config) Tolerance() drift.Tolerance {
	return drift.Tolerance{
		Translation: c.TranslationTolerance,
		Rotation:    c.RotationTolerance,
	}
}

// TrackerOptions returns options for drift.NewTracker
func (c *Config) TrackerOptions() []drift.TrackerOption {
	return []drift.TrackerOption{
		drift.WithTolerance(c.Tolerance()),
		drift.WithHistoryLimit(c.HistoryLimit),
		drift.WithSmoothing(c.Smoothing),
	}
}

// LocateOptions returns parameters of feature based localization
func (c *Config) LocateOptions() locate.Options {
	return locate.Options{
		K:                   c.K,
		UniquenessThreshold: c.UniquenessThreshold,
		ScaleIncrement:      c.ScaleIncrement,
		RotationBins:        c.RotationBins,
		MinMatches:          c.MinMatches,
		RansacThreshold:     c.RansacThreshold,
		RansacIterations:    c.RansacIterations,
		Seed:                c.Seed,
	}
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "Can't open config")
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), errors.Wrap(err, "Can't decode config")
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Can't create config")
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
