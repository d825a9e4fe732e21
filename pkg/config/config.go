package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DetectionThresholds contains the tunable constants of the four detectors
type DetectionThresholds struct {
	// Signature scanning
	SelfMatchWindow int // own-format magic at or below this offset is the genuine header

	// String extraction
	TrailingTolerance     int // bytes after the end marker ignored before data counts as trailing
	TrailingPreviewLength int // characters kept from trailing data

	// Bit-plane analysis
	EntropyThreshold float64 // LSB entropy above which the plane looks random
	RatioLow         float64 // lower bound (exclusive) of the near-random ones ratio
	RatioHigh        float64 // upper bound (exclusive)

	// Histogram analysis
	PeakFactor    float64 // bins above PeakFactor * mean bin count are peaks
	MaxPeaks      int     // more peaks than this marks the channel anomalous
	ReportedPeaks int     // peak indices kept for reporting
	MinGapRun     int     // zero runs longer than this count as a gap
	MaxGaps       int     // more gaps than this marks the channel anomalous
}

// DefaultDetectionConfig returns the default detection configuration
func DefaultDetectionConfig() DetectionThresholds {
	return DetectionThresholds{
		SelfMatchWindow: 50,

		TrailingTolerance:     10,
		TrailingPreviewLength: 200,

		EntropyThreshold: 0.95, // natural LSB planes sit below ~0.9
		RatioLow:         0.48,
		RatioHigh:        0.52,

		PeakFactor:    5,
		MaxPeaks:      20,
		ReportedPeaks: 10,
		MinGapRun:     5,
		MaxGaps:       10,
	}
}

// DefaultMaxFileBytes bounds how much of a file is read into memory
const DefaultMaxFileBytes int64 = 100 * 1024 * 1024

// Config is the resolved runtime configuration
type Config struct {
	Thresholds    DetectionThresholds
	MaxFileBytes  int64
	OutputDir     string
	NoColor       bool
	OCR           bool
	OCRBinary     string
	OCRLanguages  string
	RevealMaxSize int
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Thresholds:    DefaultDetectionConfig(),
		MaxFileBytes:  DefaultMaxFileBytes,
		OCR:           true,
		OCRLanguages:  "eng",
		RevealMaxSize: 1 << 20,
	}
}

// FileConfig is the on-disk YAML configuration shape. Pointer fields stay
// nil when a key is absent so defaults survive.
type FileConfig struct {
	MaxFileBytes *int64  `yaml:"max_file_bytes"`
	OutputDir    *string `yaml:"output_dir"`
	NoColor      *bool   `yaml:"no_color"`

	OCR *OCRConfig `yaml:"ocr"`

	Signatures *struct {
		SelfMatchWindow *int `yaml:"self_match_window"`
	} `yaml:"signatures"`

	Strings *struct {
		TrailingTolerance     *int `yaml:"trailing_tolerance"`
		TrailingPreviewLength *int `yaml:"trailing_preview_length"`
	} `yaml:"strings"`

	BitPlane *struct {
		EntropyThreshold *float64 `yaml:"entropy_threshold"`
		RatioLow         *float64 `yaml:"ratio_low"`
		RatioHigh        *float64 `yaml:"ratio_high"`
	} `yaml:"bit_plane"`

	Histogram *struct {
		PeakFactor    *float64 `yaml:"peak_factor"`
		MaxPeaks      *int     `yaml:"max_peaks"`
		ReportedPeaks *int     `yaml:"reported_peaks"`
		MinGapRun     *int     `yaml:"min_gap_run"`
		MaxGaps       *int     `yaml:"max_gaps"`
	} `yaml:"histogram"`

	Reveal *struct {
		MaxSize *int `yaml:"max_size"`
	} `yaml:"reveal"`
}

// OCRConfig configures the external OCR engine
type OCRConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	Binary    *string `yaml:"binary"`
	Languages *string `yaml:"languages"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ErrNoLocalConfig is returned by LoadLocal when dir holds no config file
var ErrNoLocalConfig = errors.New("no local config")

// LoadLocal looks for .decodeur.yml/.yaml or decodeur.yml/.yaml in dir.
func LoadLocal(dir string) (FileConfig, error) {
	for _, name := range []string{".decodeur.yml", ".decodeur.yaml", "decodeur.yml", "decodeur.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, ErrNoLocalConfig
}

// Resolve applies the file settings on top of the defaults
func (fc FileConfig) Resolve() Config {
	cfg := Default()
	t := &cfg.Thresholds

	setInt64(&cfg.MaxFileBytes, fc.MaxFileBytes)
	setString(&cfg.OutputDir, fc.OutputDir)
	setBool(&cfg.NoColor, fc.NoColor)

	if fc.OCR != nil {
		setBool(&cfg.OCR, fc.OCR.Enabled)
		setString(&cfg.OCRBinary, fc.OCR.Binary)
		setString(&cfg.OCRLanguages, fc.OCR.Languages)
	}
	if s := fc.Signatures; s != nil {
		setInt(&t.SelfMatchWindow, s.SelfMatchWindow)
	}
	if s := fc.Strings; s != nil {
		setInt(&t.TrailingTolerance, s.TrailingTolerance)
		setInt(&t.TrailingPreviewLength, s.TrailingPreviewLength)
	}
	if b := fc.BitPlane; b != nil {
		setFloat(&t.EntropyThreshold, b.EntropyThreshold)
		setFloat(&t.RatioLow, b.RatioLow)
		setFloat(&t.RatioHigh, b.RatioHigh)
	}
	if h := fc.Histogram; h != nil {
		setFloat(&t.PeakFactor, h.PeakFactor)
		setInt(&t.MaxPeaks, h.MaxPeaks)
		setInt(&t.ReportedPeaks, h.ReportedPeaks)
		setInt(&t.MinGapRun, h.MinGapRun)
		setInt(&t.MaxGaps, h.MaxGaps)
	}
	if r := fc.Reveal; r != nil {
		setInt(&cfg.RevealMaxSize, r.MaxSize)
	}
	return cfg
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
