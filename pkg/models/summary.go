package models

// Method names one of the seven detection methods that feed correlation
type Method string

const (
	MethodOCR        Method = "OCR"
	MethodLSB        Method = "LSB"
	MethodEXIF       Method = "EXIF"
	MethodStrings    Method = "STRINGS"
	MethodSignatures Method = "SIGNATURES"
	MethodBitPlanes  Method = "BIT-PLANES"
	MethodHistogram  Method = "HISTOGRAM"
)

// AllMethods lists the methods in reporting order
var AllMethods = []Method{
	MethodOCR,
	MethodLSB,
	MethodEXIF,
	MethodStrings,
	MethodSignatures,
	MethodBitPlanes,
	MethodHistogram,
}

// SuspicionLevel is the four-point classification of an analysis
type SuspicionLevel string

const (
	SuspicionNone   SuspicionLevel = "NONE"
	SuspicionLow    SuspicionLevel = "LOW"
	SuspicionMedium SuspicionLevel = "MEDIUM"
	SuspicionHigh   SuspicionLevel = "HIGH"
)

// Rank orders levels so they can be compared
func (l SuspicionLevel) Rank() int {
	switch l {
	case SuspicionLow:
		return 1
	case SuspicionMedium:
		return 2
	case SuspicionHigh:
		return 3
	default:
		return 0
	}
}

// MethodFinding is the summary slot of one method
type MethodFinding struct {
	Method   Method `json:"method"`
	Positive bool   `json:"positive"`
}

// FindingsSummary is produced once per analysis by correlation and never
// mutated afterwards.
type FindingsSummary struct {
	Methods            []MethodFinding `json:"methods"`
	MethodsWithFinding []Method        `json:"methodsWithFindings"`
	TotalFindings      int             `json:"totalFindings"`
	SuspicionLevel     SuspicionLevel  `json:"suspicionLevel"`
	ExtractionSuccess  bool            `json:"extractionSuccess"`
	SignatureCount     int             `json:"signatureCount"`
}

// Positive reports whether m produced a finding
func (s FindingsSummary) Positive(m Method) bool {
	for _, f := range s.Methods {
		if f.Method == m {
			return f.Positive
		}
	}
	return false
}

// SemanticContext is the reduced view handed to the interpretation phase
type SemanticContext struct {
	HasLSB              bool           `json:"has_lsb"`
	SignatureCount      int            `json:"signature_count"`
	HasBitPlaneAnomaly  bool           `json:"has_bit_plane_anomaly"`
	HasHistogramAnomaly bool           `json:"has_histogram_anomaly"`
	SuspicionLevel      SuspicionLevel `json:"suspicion_level"`
}

// Context derives the semantic-interpretation context from the summary
func (s FindingsSummary) Context() SemanticContext {
	return SemanticContext{
		HasLSB:              s.Positive(MethodLSB),
		SignatureCount:      s.SignatureCount,
		HasBitPlaneAnomaly:  s.Positive(MethodBitPlanes),
		HasHistogramAnomaly: s.Positive(MethodHistogram),
		SuspicionLevel:      s.SuspicionLevel,
	}
}
