package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.TranslationTolerance != 5 || cfg.RotationTolerance != 2 {
		t.Errorf("Expected 5px / 2deg tolerance, got %f / %f", cfg.TranslationTolerance, cfg.RotationTolerance)
	}
	if cfg.UniquenessThreshold != 0.8 || cfg.ScaleIncrement != 1.5 || cfg.RotationBins != 20 {
		t.Errorf("Unexpected matching defaults: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.TranslationTolerance = 8
	cfg.Smoothing = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Can't save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Can't load: %v", err)
	}
	if loaded.TranslationTolerance != 8 || !loaded.Smoothing {
		t.Errorf("Overrides lost: %+v", loaded)
	}
}

func TestLoadPartialAndInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"rotation_tolerance": 3.5, "uniqueness_threshold": 7, "min_matches": 1}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Can't write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Can't load: %v", err)
	}
	if cfg.RotationTolerance != 3.5 {
		t.Errorf("Expected rotation tolerance 3.5, got %f", cfg.RotationTolerance)
	}
	if cfg.UniquenessThreshold != 0.8 {
		t.Errorf("Out of range threshold should be reset to 0.8, got %f", cfg.UniquenessThreshold)
	}
	if cfg.MinMatches != 4 {
		t.Errorf("Homography needs at least 4 matches, got %d", cfg.MinMatches)
	}
	if cfg.Tolerance().Translation != 5 {
		t.Errorf("Omitted values should keep defaults, got %f", cfg.Tolerance().Translation)
	}
}

func TestLoadBrokenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"debug": tru`), 0o644); err != nil {
		t.Fatalf("Can't write config: %v", err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Error("Expected decode error")
	}
	if cfg == nil || cfg.RotationTolerance != 2 {
		t.Errorf("Expected defaults along with error, got %+v", cfg)
	}
}

func TestValidateNonFinite(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults should be valid: %v", err)
	}
	cfg.RotationTolerance = math.NaN()
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for NaN, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.TranslationTolerance = math.Inf(1)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := cfg.Save(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig on save, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Invalid config must not be written, stat: %v", err)
	}
}
