package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeclaredFormat is the image format a buffer claims to be, judged from its
// leading bytes.
type DeclaredFormat string

const (
	FormatUnknown DeclaredFormat = "unknown"
	FormatPNG     DeclaredFormat = "PNG"
	FormatJPEG    DeclaredFormat = "JPEG"
)

var (
	pngLead  = []byte{0x89, 'P', 'N', 'G'}
	jpegLead = []byte{0xFF, 0xD8}
)

// DetectDeclaredFormat classifies raw by its first bytes
func DetectDeclaredFormat(raw []byte) DeclaredFormat {
	switch {
	case bytes.HasPrefix(raw, pngLead):
		return FormatPNG
	case bytes.HasPrefix(raw, jpegLead):
		return FormatJPEG
	default:
		return FormatUnknown
	}
}

// EndMarker returns the byte sequence that terminates the format's image
// data, or nil when the format has none we know of.
func (f DeclaredFormat) EndMarker() []byte {
	switch f {
	case FormatPNG:
		return []byte("IEND")
	case FormatJPEG:
		return []byte{0xFF, 0xD9}
	default:
		return nil
	}
}

// Plane is a single-channel 8-bit pixel matrix stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPlane allocates a zeroed plane
func NewPlane(width, height int) Plane {
	return Plane{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Empty reports whether the plane holds no pixels
func (p Plane) Empty() bool {
	return len(p.Pix) == 0 || p.Width <= 0 || p.Height <= 0
}

// SignatureMatch is one occurrence of a known file magic inside the buffer
type SignatureMatch struct {
	Kind      string `json:"type"`
	Offset    int    `json:"offset"`
	HexOffset string `json:"hexOffset"`
}

// NewSignatureMatch builds a match and fills in its hex offset
func NewSignatureMatch(kind string, offset int) SignatureMatch {
	return SignatureMatch{Kind: kind, Offset: offset, HexOffset: fmt.Sprintf("%#x", offset)}
}

// StringFinding is a suspicious text fragment and the pattern category that
// matched it.
type StringFinding struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// StringSet is an unordered, text-deduplicated collection of string
// findings. Iteration order is unspecified.
type StringSet struct {
	items map[string]StringFinding
}

// Add inserts f unless a finding with the same text is already present
func (s *StringSet) Add(f StringFinding) {
	if s.items == nil {
		s.items = make(map[string]StringFinding)
	}
	if _, ok := s.items[f.Text]; ok {
		return
	}
	s.items[f.Text] = f
}

// Len returns the number of distinct findings
func (s StringSet) Len() int {
	return len(s.items)
}

// Contains reports whether a finding with the given text exists
func (s StringSet) Contains(text string) bool {
	_, ok := s.items[text]
	return ok
}

// Items returns the findings in no particular order
func (s StringSet) Items() []StringFinding {
	out := make([]StringFinding, 0, len(s.items))
	for _, f := range s.items {
		out = append(out, f)
	}
	return out
}

// Texts returns the finding texts in no particular order
func (s StringSet) Texts() []string {
	out := make([]string, 0, len(s.items))
	for text := range s.items {
		out = append(out, text)
	}
	return out
}

// MarshalJSON encodes the set as an array
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes an array of findings into the set
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []StringFinding
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = nil
	for _, f := range items {
		s.Add(f)
	}
	return nil
}

// BitPlaneMetrics summarizes the least-significant bit plane of an image
type BitPlaneMetrics struct {
	Entropy        float64 `json:"lsbEntropy"`
	MeanRatio      float64 `json:"lsbRatio"`
	EntropyAnomaly bool    `json:"anomalyEntropy"`
	RatioAnomaly   bool    `json:"anomalyRatio"`
}

// Anomalous is the combined bit-plane flag
func (m BitPlaneMetrics) Anomalous() bool {
	return m.EntropyAnomaly || m.RatioAnomaly
}

// ChannelStats holds intensity statistics for one color channel
type ChannelStats struct {
	Name         string  `json:"name"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	PeakBins     []int   `json:"peaks"`
	PeakCount    int     `json:"peakCount"`
	ZeroGapCount int     `json:"zeroGaps"`
	Anomalous    bool    `json:"anomalous"`
}

// HistogramReport holds the per-channel statistics in Blue, Green, Red order
type HistogramReport struct {
	Channels          []ChannelStats `json:"channelStats"`
	AnomalousChannels []string       `json:"anomalousChannels"`
}

// Anomalous is true when any channel is anomalous
func (r HistogramReport) Anomalous() bool {
	return len(r.AnomalousChannels) > 0
}
