package histogram

import (
	"errors"
	"fmt"
	"math"

	"Decodeur/pkg/analyzer"
	"Decodeur/pkg/config"
	"Decodeur/pkg/models"
)

// ErrEmptyPlane is returned when a channel plane holds no pixels
var ErrEmptyPlane = errors.New("empty channel plane")

// ChannelNames are the names of the three planes, in the order they are passed in
var ChannelNames = [3]string{"Blue", "Green", "Red"}

// Analyzer flags channels whose intensity histogram has too many peaks or gaps
type Analyzer struct {
	analyzer.BaseAnalyzer
	thresholds config.DetectionThresholds
}

// NewAnalyzer creates a histogram analyzer using the given thresholds
func NewAnalyzer(t config.DetectionThresholds) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(
			"Histogram Analyzer",
			"Looks for abnormal peaks and empty runs in per-channel intensity histograms",
			models.MethodHistogram,
		),
		thresholds: t,
	}
}

// Analyze computes statistics for the blue, green and red planes
func (a *Analyzer) Analyze(channels [3]models.Plane) (models.HistogramReport, error) {
	report := models.HistogramReport{Channels: make([]models.ChannelStats, 0, len(channels))}
	for i, plane := range channels {
		if plane.Empty() {
			return models.HistogramReport{}, fmt.Errorf("%s: %w", ChannelNames[i], ErrEmptyPlane)
		}
		stats := a.channelStats(ChannelNames[i], plane)
		if stats.Anomalous {
			report.AnomalousChannels = append(report.AnomalousChannels, stats.Name)
		}
		report.Channels = append(report.Channels, stats)
	}
	return report, nil
}

func (a *Analyzer) channelStats(name string, plane models.Plane) models.ChannelStats {
	hist := Histogram(plane)
	mean, std := meanStd(plane.Pix)

	peaks := FindPeaks(hist, a.thresholds.PeakFactor)
	gaps := CountZeroGaps(hist, a.thresholds.MinGapRun)

	reported := peaks
	if len(reported) > a.thresholds.ReportedPeaks {
		reported = reported[:a.thresholds.ReportedPeaks]
	}

	return models.ChannelStats{
		Name:         name,
		Mean:         mean,
		Std:          std,
		PeakBins:     reported,
		PeakCount:    len(peaks),
		ZeroGapCount: gaps,
		Anomalous:    len(peaks) > a.thresholds.MaxPeaks || gaps > a.thresholds.MaxGaps,
	}
}

// Histogram counts pixel intensities into 256 bins
func Histogram(plane models.Plane) [256]int {
	var hist [256]int
	for _, p := range plane.Pix {
		hist[p]++
	}
	return hist
}

// FindPeaks returns the bins whose count exceeds factor times the mean bin count
func FindPeaks(hist [256]int, factor float64) []int {
	total := 0
	for _, c := range hist {
		total += c
	}
	limit := float64(total) / float64(len(hist)) * factor

	peaks := []int{}
	for bin, c := range hist {
		if float64(c) > limit {
			peaks = append(peaks, bin)
		}
	}
	return peaks
}

// CountZeroGaps scans the bins in order and counts runs of empty bins longer
// than minRun. A run only counts once a non-empty bin closes it, so a run
// reaching the last bin is ignored.
func CountZeroGaps(hist [256]int, minRun int) int {
	gaps, run := 0, 0
	for _, c := range hist {
		if c == 0 {
			run++
			continue
		}
		if run > minRun {
			gaps++
		}
		run = 0
	}
	return gaps
}

// meanStd returns the mean and population standard deviation of pix
func meanStd(pix []uint8) (float64, float64) {
	n := float64(len(pix))
	sum := 0.0
	for _, p := range pix {
		sum += float64(p)
	}
	mean := sum / n

	varSum := 0.0
	for _, p := range pix {
		diff := float64(p) - mean
		varSum += diff * diff
	}
	return mean, math.Sqrt(varSum / n)
}
