package lsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Decodeur/pkg/config"
	"Decodeur/pkg/models"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultDetectionConfig())
}

func planeOf(width, height int, fn func(x, y int) uint8) models.Plane {
	p := models.NewPlane(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.Pix[y*width+x] = fn(x, y)
		}
	}
	return p
}

func TestAnalyze_UniformPlane(t *testing.T) {
	// even values only: every LSB is zero
	gray := planeOf(16, 16, func(x, y int) uint8 { return uint8((x + y) * 2) })

	m, err := newAnalyzer().Analyze(gray)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Entropy)
	assert.Equal(t, 0.0, m.MeanRatio)
	assert.False(t, m.EntropyAnomaly)
	assert.False(t, m.RatioAnomaly)
	assert.False(t, m.Anomalous())
}

func TestAnalyze_AllOnes(t *testing.T) {
	gray := planeOf(8, 8, func(x, y int) uint8 { return 201 })

	m, err := newAnalyzer().Analyze(gray)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Entropy)
	assert.Equal(t, 1.0, m.MeanRatio)
	assert.False(t, m.Anomalous())
}

func TestAnalyze_Checkerboard(t *testing.T) {
	gray := planeOf(16, 16, func(x, y int) uint8 { return uint8(100 + (x+y)%2) })

	m, err := newAnalyzer().Analyze(gray)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Entropy, 1e-9)
	assert.InDelta(t, 0.5, m.MeanRatio, 1e-9)
	assert.True(t, m.EntropyAnomaly)
	assert.True(t, m.RatioAnomaly)
	assert.True(t, m.Anomalous())
}

func TestAnalyze_SkewedPlane(t *testing.T) {
	// 1 pixel in 4 has its LSB set: entropy ~0.811, ratio 0.25
	gray := planeOf(20, 20, func(x, y int) uint8 {
		if x%4 == 0 {
			return 3
		}
		return 2
	})

	m, err := newAnalyzer().Analyze(gray)
	require.NoError(t, err)
	assert.InDelta(t, 0.8113, m.Entropy, 1e-4)
	assert.InDelta(t, 0.25, m.MeanRatio, 1e-9)
	assert.False(t, m.Anomalous())
}

func TestAnalyze_RatioOnlyAnomaly(t *testing.T) {
	// 49 of 100 pixels odd: ratio inside the band, entropy ~0.9997
	gray := models.NewPlane(10, 10)
	for i := 0; i < 49; i++ {
		gray.Pix[i] = 1
	}

	m, err := newAnalyzer().Analyze(gray)
	require.NoError(t, err)
	assert.True(t, m.RatioAnomaly)
	assert.True(t, m.EntropyAnomaly)

	custom := config.DefaultDetectionConfig()
	custom.EntropyThreshold = 0.99999
	m, err = NewAnalyzer(custom).Analyze(gray)
	require.NoError(t, err)
	assert.False(t, m.EntropyAnomaly)
	assert.True(t, m.RatioAnomaly)
	assert.True(t, m.Anomalous())
}

func TestAnalyze_EmptyPlane(t *testing.T) {
	_, err := newAnalyzer().Analyze(models.Plane{})
	assert.ErrorIs(t, err, ErrEmptyPlane)
}
