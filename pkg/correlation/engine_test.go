package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Decodeur/pkg/models"
)

func TestLevelFor(t *testing.T) {
	want := []models.SuspicionLevel{
		models.SuspicionNone,
		models.SuspicionLow, models.SuspicionLow,
		models.SuspicionMedium, models.SuspicionMedium,
		models.SuspicionHigh, models.SuspicionHigh, models.SuspicionHigh,
	}
	for total, level := range want {
		assert.Equal(t, level, LevelFor(total), "total=%d", total)
	}
}

func TestCorrelate_NothingFound(t *testing.T) {
	s := Correlate(Findings{}, Signals{})
	assert.Equal(t, 0, s.TotalFindings)
	assert.Equal(t, models.SuspicionNone, s.SuspicionLevel)
	assert.Empty(t, s.MethodsWithFinding)
	assert.Len(t, s.Methods, 7)
	assert.False(t, s.ExtractionSuccess)
}

func TestCorrelate_AllFound(t *testing.T) {
	var strs models.StringSet
	strs.Add(models.StringFinding{Category: "flag", Text: "FLAG{x}"})

	f := Findings{
		Signatures: []models.SignatureMatch{models.NewSignatureMatch("ZIP", 300)},
		Strings:    strs,
		BitPlane:   models.BitPlaneMetrics{RatioAnomaly: true},
		Histogram:  models.HistogramReport{AnomalousChannels: []string{"Red"}},
	}
	s := Correlate(f, Signals{OCRTextFound: true, HiddenMessage: "hi", MetadataSuspicious: true})

	assert.Equal(t, 7, s.TotalFindings)
	assert.Equal(t, models.SuspicionHigh, s.SuspicionLevel)
	assert.Equal(t, models.AllMethods, s.MethodsWithFinding)
	assert.True(t, s.ExtractionSuccess)
	assert.Equal(t, 1, s.SignatureCount)
}

// every combination of the seven booleans
func TestCorrelate_Monotonic(t *testing.T) {
	prevRank := map[int]int{}
	for mask := 0; mask < 1<<7; mask++ {
		bit := func(i int) bool { return mask&(1<<i) != 0 }

		var f Findings
		var sig Signals
		sig.OCRTextFound = bit(0)
		if bit(1) {
			sig.HiddenMessage = "msg"
		}
		sig.MetadataSuspicious = bit(2)
		if bit(3) {
			f.Strings.Add(models.StringFinding{Category: "url", Text: "http://a"})
		}
		if bit(4) {
			f.Signatures = []models.SignatureMatch{models.NewSignatureMatch("PDF", 9)}
		}
		f.BitPlane.EntropyAnomaly = bit(5)
		if bit(6) {
			f.Histogram.AnomalousChannels = []string{"Blue"}
		}

		s := Correlate(f, sig)

		want := 0
		for i := 0; i < 7; i++ {
			if bit(i) {
				want++
			}
		}
		assert.Equal(t, want, s.TotalFindings)
		assert.Len(t, s.MethodsWithFinding, want)
		assert.Equal(t, bit(1), s.ExtractionSuccess)
		assert.Equal(t, LevelFor(want), s.SuspicionLevel)
		prevRank[want] = s.SuspicionLevel.Rank()
	}
	for total := 1; total <= 7; total++ {
		assert.GreaterOrEqual(t, prevRank[total], prevRank[total-1])
	}
}

func TestCorrelate_SignaturesAndStrings(t *testing.T) {
	var strs models.StringSet
	strs.Add(models.StringFinding{Category: "password", Text: "password=abc123"})

	s := Correlate(Findings{
		Signatures: []models.SignatureMatch{models.NewSignatureMatch("ZIP", 300)},
		Strings:    strs,
	}, Signals{})

	assert.Equal(t, []models.Method{models.MethodStrings, models.MethodSignatures}, s.MethodsWithFinding)
	assert.Equal(t, 2, s.TotalFindings)
	assert.Equal(t, models.SuspicionLow, s.SuspicionLevel)
}

func TestSummaryContext(t *testing.T) {
	s := Correlate(Findings{
		Signatures: []models.SignatureMatch{
			models.NewSignatureMatch("EXE_MZ", 0),
			models.NewSignatureMatch("EXE_MZ", 2),
		},
		BitPlane: models.BitPlaneMetrics{EntropyAnomaly: true},
	}, Signals{HiddenMessage: "x"})

	assert.Equal(t, models.SemanticContext{
		HasLSB:              true,
		SignatureCount:      2,
		HasBitPlaneAnomaly:  true,
		HasHistogramAnomaly: false,
		SuspicionLevel:      models.SuspicionMedium,
	}, s.Context())
}
