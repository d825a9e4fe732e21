package signature

import (
	"bytes"

	"Decodeur/pkg/analyzer"
	"Decodeur/pkg/config"
	"Decodeur/pkg/models"
)

// Signature is a named file magic
type Signature struct {
	Kind  string
	Magic []byte
}

// Catalogue is the fixed list of embedded-file magics, in scan order.
var Catalogue = []Signature{
	{"ZIP", []byte("PK\x03\x04")},
	{"ZIP_EMPTY", []byte("PK\x05\x06")},
	{"ZIP_SPANNED", []byte("PK\x07\x08")},
	{"PDF", []byte("%PDF")},
	{"PNG", []byte("\x89PNG\r\n\x1a\n")},
	{"JPEG", []byte{0xFF, 0xD8, 0xFF}},
	{"GIF87a", []byte("GIF87a")},
	{"GIF89a", []byte("GIF89a")},
	{"BMP", []byte("BM")},
	{"EXE_MZ", []byte("MZ")},
	{"RAR", []byte("Rar!\x1a\x07")},
	{"7Z", []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{"GZIP", []byte{0x1F, 0x8B, 0x08}},
	{"TAR", []byte("ustar")},
}

// Scanner finds embedded-file signatures inside a raw buffer
type Scanner struct {
	analyzer.BaseAnalyzer
	selfMatchWindow int
}

// NewScanner creates a scanner using the given thresholds
func NewScanner(t config.DetectionThresholds) *Scanner {
	return &Scanner{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(
			"Signature Scanner",
			"Finds magic bytes of other file formats hidden inside the image",
			models.MethodSignatures,
		),
		selfMatchWindow: t.SelfMatchWindow,
	}
}

// Scan returns every catalogue match in discovery order: catalogue order
// first, then ascending offset. The image's own magic is ignored at offsets
// up to the self-match window. Matches may overlap because the search resumes
// one byte after each match start.
func (s *Scanner) Scan(raw []byte, format models.DeclaredFormat) []models.SignatureMatch {
	var matches []models.SignatureMatch
	for _, sig := range Catalogue {
		own := sig.Kind == string(format)
		for _, pos := range findAll(raw, sig.Magic) {
			if own && pos <= s.selfMatchWindow {
				continue
			}
			matches = append(matches, models.NewSignatureMatch(sig.Kind, pos))
		}
	}
	return matches
}

// findAll returns the start offset of every occurrence of magic in raw,
// overlapping ones included.
func findAll(raw, magic []byte) []int {
	var offsets []int
	if len(magic) == 0 {
		return offsets
	}
	start := 0
	for start <= len(raw)-len(magic) {
		i := bytes.Index(raw[start:], magic)
		if i < 0 {
			break
		}
		pos := start + i
		offsets = append(offsets, pos)
		start = pos + 1
	}
	return offsets
}
