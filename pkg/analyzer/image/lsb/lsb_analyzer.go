package lsb

import (
	"errors"
	"math"

	"Decodeur/pkg/analyzer"
	"Decodeur/pkg/config"
	"Decodeur/pkg/models"
)

// ErrEmptyPlane is returned when the grayscale plane holds no pixels
var ErrEmptyPlane = errors.New("empty grayscale plane")

// Analyzer measures how random the least-significant bit plane looks
type Analyzer struct {
	analyzer.BaseAnalyzer
	entropyThreshold float64
	ratioLow         float64
	ratioHigh        float64
}

// NewAnalyzer creates a bit-plane analyzer using the given thresholds
func NewAnalyzer(t config.DetectionThresholds) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(
			"Bit-Plane Analyzer",
			"Computes entropy and ones ratio of the grayscale LSB plane",
			models.MethodBitPlanes,
		),
		entropyThreshold: t.EntropyThreshold,
		ratioLow:         t.RatioLow,
		ratioHigh:        t.RatioHigh,
	}
}

// Analyze extracts the LSB of every pixel of gray, scales it to 0/255 and
// computes the entropy of its 256-bin histogram along with the mean ratio.
func (a *Analyzer) Analyze(gray models.Plane) (models.BitPlaneMetrics, error) {
	if gray.Empty() {
		return models.BitPlaneMetrics{}, ErrEmptyPlane
	}

	var hist [256]int
	sum := 0
	for _, p := range gray.Pix {
		scaled := int(p&1) * 255
		hist[scaled]++
		sum += scaled
	}

	total := float64(len(gray.Pix))
	entropy := histogramEntropy(hist[:], total)
	ratio := float64(sum) / total / 255

	return models.BitPlaneMetrics{
		Entropy:        entropy,
		MeanRatio:      ratio,
		EntropyAnomaly: entropy > a.entropyThreshold,
		RatioAnomaly:   ratio > a.ratioLow && ratio < a.ratioHigh,
	}, nil
}

// histogramEntropy calculates Shannon entropy over the non-empty bins
func histogramEntropy(hist []int, total float64) float64 {
	entropy := 0.0
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		// Shannon entropy formula: -sum(p_i * log2(p_i))
		entropy -= p * math.Log2(p)
	}
	// a single non-empty bin yields -0
	return math.Abs(entropy)
}
