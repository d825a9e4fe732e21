package models

import (
	"time"
)

// AnalysisResult is the complete record of one forensic analysis run. It is
// what report renderers consume.
type AnalysisResult struct {
	Image          string          `json:"image"`
	ImagePath      string          `json:"imagePath"`
	AnalysisDate   time.Time       `json:"analysisDate"`
	Duration       time.Duration   `json:"analysisDuration"`
	Digest         string          `json:"digest"` // blake3 of the raw buffer
	FileSize       int             `json:"fileSize"`
	Format         DeclaredFormat  `json:"format"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	OCR            OCRResult       `json:"ocr"`
	Steganography  Steganography   `json:"steganography"`
	Summary        FindingsSummary `json:"summary"`
	Context        SemanticContext `json:"context"`
	Unavailable    []string        `json:"unavailable,omitempty"` // detectors that failed locally
	RawStringCount int             `json:"rawStringCount"`
}

// Steganography groups the per-method evidence of an analysis
type Steganography struct {
	LSB              string           `json:"lsb"`
	Exif             MetadataReport   `json:"exif"`
	ASCIIStrings     StringSet        `json:"asciiStrings"`
	BinarySignatures []SignatureMatch `json:"binarySignatures"`
	BitPlaneAnomaly  bool             `json:"bitPlaneAnomaly"`
	BitPlaneDetails  BitPlaneMetrics  `json:"bitPlaneDetails"`
	HistogramAnomaly bool             `json:"histogramAnomaly"`
	HistogramDetails HistogramReport  `json:"histogramDetails"`
}

// OCREngineResult is the output of a single OCR engine
type OCREngineResult struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OCRResult maps engine name to what it recognized
type OCRResult struct {
	Engines map[string]OCREngineResult `json:"engines"`
}

// TextFound reports whether any engine returned non-empty text
func (r OCRResult) TextFound() bool {
	for _, e := range r.Engines {
		if e.Success {
			return true
		}
	}
	return false
}

// MetadataComment is a free-text metadata field and its value
type MetadataComment struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// MetadataReport is what the metadata collaborator extracted
type MetadataReport struct {
	Standard   map[string]string `json:"standard"`
	Suspicious []string          `json:"suspicious"`
	Comments   []MetadataComment `json:"comments"`
}

// IsSuspicious reports whether any suspicious field or comment was found
func (m MetadataReport) IsSuspicious() bool {
	return len(m.Suspicious) > 0 || len(m.Comments) > 0
}

// AddComment records a free-text field. When suspicious is set the field is
// also listed among the suspicious entries.
func (m *MetadataReport) AddComment(field, value string, suspicious bool) {
	m.Comments = append(m.Comments, MetadataComment{Field: field, Value: value})
	if suspicious {
		m.Suspicious = append(m.Suspicious, field+": "+value)
	}
}

// ExtractionResult contains the results of a reveal attempt
type ExtractionResult struct {
	Success   bool   `json:"success"`
	Format    string `json:"format"`
	Algorithm string `json:"algorithm"`
	Message   string `json:"message"`
	DataSize  int    `json:"dataSize"`
}
