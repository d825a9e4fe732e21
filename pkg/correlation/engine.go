// Package correlation fuses the detector outputs and the collaborator
// signals into a single suspicion assessment.
package correlation

import (
	"Decodeur/pkg/models"
)

// Findings are the outputs of the four core detectors. A detector that
// failed locally contributes its zero value.
type Findings struct {
	Signatures []models.SignatureMatch
	Strings    models.StringSet
	BitPlane   models.BitPlaneMetrics
	Histogram  models.HistogramReport
}

// Signals are the findings supplied by external collaborators
type Signals struct {
	OCRTextFound       bool
	HiddenMessage      string // empty when nothing was revealed
	MetadataSuspicious bool
}

// LevelFor maps a count of positive methods to a suspicion level
func LevelFor(total int) models.SuspicionLevel {
	switch {
	case total <= 0:
		return models.SuspicionNone
	case total <= 2:
		return models.SuspicionLow
	case total <= 4:
		return models.SuspicionMedium
	default:
		return models.SuspicionHigh
	}
}

// Correlate builds the summary. It performs no I/O and cannot fail.
func Correlate(f Findings, s Signals) models.FindingsSummary {
	positive := map[models.Method]bool{
		models.MethodOCR:        s.OCRTextFound,
		models.MethodLSB:        s.HiddenMessage != "",
		models.MethodEXIF:       s.MetadataSuspicious,
		models.MethodStrings:    f.Strings.Len() > 0,
		models.MethodSignatures: len(f.Signatures) > 0,
		models.MethodBitPlanes:  f.BitPlane.Anomalous(),
		models.MethodHistogram:  f.Histogram.Anomalous(),
	}

	summary := models.FindingsSummary{
		Methods:            make([]models.MethodFinding, 0, len(models.AllMethods)),
		MethodsWithFinding: []models.Method{},
		SignatureCount:     len(f.Signatures),
		ExtractionSuccess:  s.HiddenMessage != "",
	}
	for _, m := range models.AllMethods {
		summary.Methods = append(summary.Methods, models.MethodFinding{Method: m, Positive: positive[m]})
		if positive[m] {
			summary.MethodsWithFinding = append(summary.MethodsWithFinding, m)
		}
	}
	summary.TotalFindings = len(summary.MethodsWithFinding)
	summary.SuspicionLevel = LevelFor(summary.TotalFindings)
	return summary
}
