package strscan

import (
	"bytes"
	"regexp"
	"strings"

	"Decodeur/pkg/analyzer"
	"Decodeur/pkg/config"
	"Decodeur/pkg/models"
)

// Finding categories
const (
	CategoryFlag         = "flag"
	CategoryURL          = "url"
	CategoryEmail        = "email"
	CategoryPEM          = "pem_header"
	CategoryPassword     = "password"
	CategorySecret       = "secret"
	CategoryKey          = "key"
	CategoryTrailingData = "trailing_data"
)

// TrailingDataTag prefixes the preview of data found after the end marker
const TrailingDataTag = "[TRAILING DATA] "

// minRunLength is the shortest printable run counted by CountPrintableRuns
const minRunLength = 4

type pattern struct {
	category string
	re       *regexp.Regexp
}

// patterns is matched case-insensitively against the text view of the buffer
var patterns = []pattern{
	{CategoryFlag, regexp.MustCompile(`(?i)FLAG\{[^}]+\}`)},
	{CategoryFlag, regexp.MustCompile(`(?i)CTF\{[^}]+\}`)},
	{CategoryURL, regexp.MustCompile(`(?i)https?://[^\s<>"]+`)},
	{CategoryEmail, regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{CategoryPEM, regexp.MustCompile(`(?i)-----BEGIN .+-----`)},
	{CategoryPassword, regexp.MustCompile(`(?i)password[:\s=]+\S+`)},
	{CategorySecret, regexp.MustCompile(`(?i)secret[:\s=]+\S+`)},
	{CategoryKey, regexp.MustCompile(`(?i)key[:\s=]+[a-fA-F0-9]{16,}`)},
}

// Extractor finds suspicious strings and trailing data in a raw buffer
type Extractor struct {
	analyzer.BaseAnalyzer
	tolerance  int
	previewLen int
}

// Result is the output of one extraction
type Result struct {
	Findings       models.StringSet
	RawStringCount int
}

// NewExtractor creates an extractor using the given thresholds
func NewExtractor(t config.DetectionThresholds) *Extractor {
	return &Extractor{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(
			"String Extractor",
			"Finds flags, URLs, emails, keys, credentials and data appended after the image end marker",
			models.MethodStrings,
		),
		tolerance:  t.TrailingTolerance,
		previewLen: t.TrailingPreviewLength,
	}
}

// Extract applies the pattern catalogue to a lossy UTF-8 view of raw and
// checks for trailing data after the format's end marker. raw is not
// modified.
func (e *Extractor) Extract(raw []byte, format models.DeclaredFormat) Result {
	var set models.StringSet

	text := decodeLossy(raw)
	for _, p := range patterns {
		for _, m := range p.re.FindAllString(text, -1) {
			set.Add(models.StringFinding{Category: p.category, Text: m})
		}
	}

	if preview, ok := e.trailingData(raw, format.EndMarker()); ok {
		set.Add(models.StringFinding{Category: CategoryTrailingData, Text: TrailingDataTag + preview})
	}

	return Result{
		Findings:       set,
		RawStringCount: CountPrintableRuns(raw),
	}
}

// trailingData returns a bounded preview of what follows the last
// occurrence of marker, when more than the tolerance remains.
func (e *Extractor) trailingData(raw, marker []byte) (string, bool) {
	if len(marker) == 0 {
		return "", false
	}
	pos := bytes.LastIndex(raw, marker)
	if pos < 0 {
		return "", false
	}
	end := pos + len(marker)
	if len(raw)-end <= e.tolerance {
		return "", false
	}
	trailing := strings.TrimSpace(decodeLossy(raw[end:]))
	if trailing == "" {
		return "", false
	}
	return truncateRunes(trailing, e.previewLen), true
}

// decodeLossy turns raw into a string, dropping bytes that are not valid
// UTF-8.
func decodeLossy(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}

func truncateRunes(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// CountPrintableRuns counts runs of at least four printable ASCII bytes
func CountPrintableRuns(raw []byte) int {
	runs, current := 0, 0
	for _, b := range raw {
		if b >= 0x20 && b <= 0x7e {
			current++
			continue
		}
		if current >= minRunLength {
			runs++
		}
		current = 0
	}
	if current >= minRunLength {
		runs++
	}
	return runs
}
