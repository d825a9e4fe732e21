package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"Decodeur/pkg/models"
)

const (
	ruleWidth     = 60
	previewLength = 100
	maxListed     = 5
)

// Terminal prints the human-readable report
type Terminal struct {
	w       io.Writer
	title   *color.Color
	section *color.Color
	found   *color.Color
	danger  *color.Color
	muted   *color.Color
	warning *color.Color
	alert   *color.Color
}

// NewTerminal creates a terminal renderer writing to w
func NewTerminal(w io.Writer, noColor bool) *Terminal {
	t := &Terminal{
		w:       w,
		title:   color.New(color.FgWhite, color.Bold),
		section: color.New(color.FgYellow),
		found:   color.New(color.FgGreen),
		danger:  color.New(color.FgRed),
		muted:   color.New(color.FgWhite),
		warning: color.New(color.FgYellow),
		alert:   color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{t.title, t.section, t.found, t.danger, t.muted, t.warning, t.alert} {
			c.DisableColor()
		}
	}
	return t
}

func (t *Terminal) line(c *color.Color, format string, args ...interface{}) {
	c.Fprintf(t.w, format, args...)
	fmt.Fprintln(t.w)
}

func (t *Terminal) rule() {
	t.line(t.title, "%s", strings.Repeat("=", ruleWidth))
}

// yes prints a positive method line in c, no prints a negative one
func (t *Terminal) yes(c *color.Color, label string) {
	t.line(c, "  [x] %s: YES", label)
}

func (t *Terminal) no(label string) {
	t.line(t.muted, "  [ ] %s: NO", label)
}

// Render prints the seven method sections and the conclusion
func (t *Terminal) Render(r *models.AnalysisResult) {
	t.rule()
	t.line(t.title, " FORENSIC ANALYSIS REPORT")
	t.rule()

	fmt.Fprintln(t.w)
	t.line(t.found, "[+] Image analysed: %s", r.Image)
	fmt.Fprintf(t.w, "    Format: %s  Size: %dx%d  Bytes: %d\n", r.Format, r.Width, r.Height, r.FileSize)
	fmt.Fprintf(t.w, "    BLAKE3: %s\n", r.Digest)

	t.renderOCR(r)
	t.renderLSB(r)
	t.renderExif(r)
	t.renderStrings(r)
	t.renderSignatures(r)
	t.renderBitPlanes(r)
	t.renderHistogram(r)
	t.renderConclusion(r)
}

func (t *Terminal) renderOCR(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[OCR]")
	if !r.OCR.TextFound() {
		t.no("Text detected")
		return
	}
	t.yes(t.found, "Text detected")
	for _, name := range sortedEngines(r.OCR) {
		if e := r.OCR.Engines[name]; e.Success {
			fmt.Fprintf(t.w, "      %s: %s\n", name, preview(e.Text, previewLength))
		}
	}
}

func (t *Terminal) renderLSB(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[LSB]")
	if r.Steganography.LSB == "" {
		t.no("Hidden message")
		return
	}
	t.yes(t.found, "Hidden message")
	fmt.Fprintf(t.w, "      Message: %s\n", preview(r.Steganography.LSB, previewLength))
}

func (t *Terminal) renderExif(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[EXIF]")
	exif := r.Steganography.Exif
	if !exif.IsSuspicious() {
		t.no("Suspicious metadata")
		return
	}
	t.yes(t.found, "Suspicious metadata")
	for i, s := range exif.Suspicious {
		if i == 3 {
			break
		}
		fmt.Fprintf(t.w, "      %s\n", preview(s, previewLength))
	}
	if len(exif.Suspicious) == 0 {
		for i, c := range exif.Comments {
			if i == 3 {
				break
			}
			fmt.Fprintf(t.w, "      %s: %s\n", c.Field, preview(c.Value, previewLength))
		}
	}
}

func (t *Terminal) renderStrings(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[STRINGS]")
	set := r.Steganography.ASCIIStrings
	if set.Len() == 0 {
		t.line(t.muted, "  [ ] Strings found: 0")
		return
	}
	t.line(t.found, "  [x] Strings found: %d", set.Len())
	items := set.Items()
	sort.Slice(items, func(i, j int) bool { return items[i].Text < items[j].Text })
	for i, f := range items {
		if i == maxListed {
			break
		}
		fmt.Fprintf(t.w, "      [%s] %s\n", f.Category, preview(f.Text, 80))
	}
}

func (t *Terminal) renderSignatures(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[SIGNATURES]")
	sigs := r.Steganography.BinarySignatures
	if len(sigs) == 0 {
		t.no("Embedded file")
		return
	}
	t.yes(t.danger, "Embedded file")
	for i, s := range sigs {
		if i == maxListed {
			fmt.Fprintf(t.w, "      ... %d more\n", len(sigs)-maxListed)
			break
		}
		fmt.Fprintf(t.w, "      %s @ offset %s\n", s.Kind, s.HexOffset)
	}
}

func (t *Terminal) renderBitPlanes(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[BIT-PLANES]")
	d := r.Steganography.BitPlaneDetails
	if !r.Steganography.BitPlaneAnomaly {
		t.no("Anomalies detected")
	} else {
		t.yes(t.danger, "Anomalies detected")
	}
	fmt.Fprintf(t.w, "      Entropy: %.4f  Ones ratio: %.4f\n", d.Entropy, d.MeanRatio)
}

func (t *Terminal) renderHistogram(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.line(t.section, "[HISTOGRAM]")
	if !r.Steganography.HistogramAnomaly {
		t.no("Statistical anomalies")
		return
	}
	t.yes(t.danger, "Statistical anomalies")
	fmt.Fprintf(t.w, "      Channels: %s\n", strings.Join(r.Steganography.HistogramDetails.AnomalousChannels, ", "))
}

func (t *Terminal) renderConclusion(r *models.AnalysisResult) {
	fmt.Fprintln(t.w)
	t.rule()
	t.line(t.title, "[CONCLUSION]")
	t.rule()

	s := r.Summary
	methods := "None"
	if len(s.MethodsWithFinding) > 0 {
		names := make([]string, len(s.MethodsWithFinding))
		for i, m := range s.MethodsWithFinding {
			names[i] = string(m)
		}
		methods = strings.Join(names, ", ")
	}
	fmt.Fprintf(t.w, "  Methods with findings: %s\n", methods)
	fmt.Fprint(t.w, "  Suspicion level: ")
	t.line(t.levelColor(s.SuspicionLevel), "%s", s.SuspicionLevel)

	if s.ExtractionSuccess {
		t.line(t.found, "  [x] Direct extraction: CONFIRMED")
	} else {
		t.line(t.warning, "  [ ] Direct extraction: NOT CONFIRMED")
	}
	if len(r.Unavailable) > 0 {
		t.line(t.warning, "  [!] Unavailable detectors: %s", strings.Join(r.Unavailable, ", "))
	}
	if s.SuspicionLevel.Rank() >= models.SuspicionMedium.Rank() {
		fmt.Fprintln(t.w)
		t.line(t.alert, "[!!!] WARNING: this image is likely to contain hidden data")
	}
}

func (t *Terminal) levelColor(l models.SuspicionLevel) *color.Color {
	switch l {
	case models.SuspicionHigh:
		return t.danger
	case models.SuspicionMedium:
		return t.warning
	default:
		return t.found
	}
}

func sortedEngines(r models.OCRResult) []string {
	names := make([]string, 0, len(r.Engines))
	for name := range r.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// preview shortens s to n runes, marking the cut with an ellipsis
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
