package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"Decodeur/pkg/models"
)

const (
	pdfMargin     = 20.0
	pdfRowHeight  = 8.0
	pdfDetailRune = 50
)

// result table column widths in mm, they add up to the A4 text width
var pdfColumns = [3]float64{50, 30, 90}

type rgb struct{ r, g, b int }

var (
	pdfNavy   = rgb{0x16, 0x21, 0x3e}
	pdfInk    = rgb{0x1a, 0x1a, 0x2e}
	pdfBand   = rgb{0xe8, 0xe8, 0xe8}
	pdfStripe = rgb{0xf5, 0xf5, 0xf5}
	pdfGrey   = rgb{0x80, 0x80, 0x80}
	pdfRed    = rgb{0xc0, 0x1c, 0x28}
	pdfOrange = rgb{0xd0, 0x70, 0x00}
	pdfGreen  = rgb{0x1a, 0x7f, 0x37}
)

// PDF renders result as an A4 document: general information, one table row
// per method and the conclusion.
func PDF(result *models.AnalysisResult) ([]byte, error) {
	return renderPDF(result, true)
}

type pdfWriter struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func renderPDF(r *models.AnalysisResult, compress bool) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(compress)
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.SetTitle("Forensic analysis of "+r.Image, true)
	doc.SetCreator("decodeur", false)
	// fixed dates and a sorted catalog make the output reproducible
	doc.SetCatalogSort(true)
	created := r.AnalysisDate
	if created.IsZero() {
		created = time.Unix(0, 0).UTC()
	}
	doc.SetCreationDate(created)
	doc.SetModificationDate(created)

	w := &pdfWriter{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		w.color(pdfGrey)
		doc.CellFormat(0, 10, fmt.Sprintf("Generated by decodeur - page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	w.title()
	w.info(r)
	w.results(r)
	w.conclusion(r)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) color(c rgb) { w.doc.SetTextColor(c.r, c.g, c.b) }

func (w *pdfWriter) fill(c rgb) { w.doc.SetFillColor(c.r, c.g, c.b) }

func (w *pdfWriter) heading(text string) {
	w.doc.Ln(6)
	w.doc.SetFont("Helvetica", "B", 14)
	w.color(pdfNavy)
	w.fill(pdfBand)
	w.doc.CellFormat(0, 10, w.tr(text), "", 1, "L", true, 0, "")
	w.doc.Ln(3)
}

func (w *pdfWriter) title() {
	w.doc.SetFont("Helvetica", "B", 24)
	w.color(pdfInk)
	w.doc.CellFormat(0, 14, "DECODEUR", "", 1, "C", false, 0, "")
	w.doc.SetFont("Helvetica", "", 13)
	w.doc.CellFormat(0, 8, "Forensic Image Analysis Report", "", 1, "C", false, 0, "")
}

func (w *pdfWriter) info(r *models.AnalysisResult) {
	w.heading("General Information")
	date := "-"
	if !r.AnalysisDate.IsZero() {
		date = r.AnalysisDate.Format(time.RFC3339)
	}
	rows := [][2]string{
		{"Image analysed:", r.Image},
		{"Path:", orDash(r.ImagePath)},
		{"Analysis date:", date},
		{"Format:", fmt.Sprintf("%s %dx%d, %d bytes", r.Format, r.Width, r.Height, r.FileSize)},
		{"BLAKE3:", orDash(r.Digest)},
	}
	w.color(pdfInk)
	for _, row := range rows {
		w.doc.SetFont("Helvetica", "B", 10)
		w.doc.CellFormat(40, 7, row[0], "", 0, "L", false, 0, "")
		w.doc.SetFont("Helvetica", "", 10)
		w.doc.MultiCell(0, 7, w.tr(row[1]), "", "L", false)
	}
}

// methodRows mirrors the terminal sections, one row per method
func methodRows(r *models.AnalysisResult) [][3]string {
	steg := r.Steganography
	ocrText := "-"
	if r.OCR.TextFound() {
		var parts []string
		for _, name := range sortedEngines(r.OCR) {
			if e := r.OCR.Engines[name]; e.Success {
				parts = append(parts, name+": "+e.Text)
			}
		}
		ocrText = strings.Join(parts, " | ")
	}
	channels := strings.Join(steg.HistogramDetails.AnomalousChannels, ", ")

	return [][3]string{
		{"OCR", status(r.OCR.TextFound()), ocrText},
		{"LSB steganography", status(steg.LSB != ""), orDash(steg.LSB)},
		{"EXIF metadata", status(steg.Exif.IsSuspicious()), fmt.Sprintf("%d suspicious fields", len(steg.Exif.Suspicious))},
		{"ASCII strings", status(steg.ASCIIStrings.Len() > 0), fmt.Sprintf("%d strings found", steg.ASCIIStrings.Len())},
		{"Binary signatures", status(len(steg.BinarySignatures) > 0), fmt.Sprintf("%d signatures", len(steg.BinarySignatures))},
		{"Bit-plane anomalies", status(steg.BitPlaneAnomaly), fmt.Sprintf("Entropy: %.3f", steg.BitPlaneDetails.Entropy)},
		{"Histogram anomalies", status(steg.HistogramAnomaly), orDash(channels)},
	}
}

func (w *pdfWriter) results(r *models.AnalysisResult) {
	w.heading("Analysis Results")
	d := w.doc
	d.SetDrawColor(pdfGrey.r, pdfGrey.g, pdfGrey.b)
	d.SetLineWidth(0.2)

	d.SetFont("Helvetica", "B", 9)
	w.fill(pdfNavy)
	d.SetTextColor(0xf5, 0xf5, 0xf5)
	for i, h := range []string{"Method", "Result", "Details"} {
		d.CellFormat(pdfColumns[i], pdfRowHeight, h, "1", 0, "C", true, 0, "")
	}
	d.Ln(-1)

	d.SetFont("Helvetica", "", 9)
	w.color(pdfInk)
	for n, row := range methodRows(r) {
		w.fill(rgb{0xff, 0xff, 0xff})
		if n%2 == 1 {
			w.fill(pdfStripe)
		}
		d.CellFormat(pdfColumns[0], pdfRowHeight, row[0], "1", 0, "L", true, 0, "")
		d.CellFormat(pdfColumns[1], pdfRowHeight, row[1], "1", 0, "C", true, 0, "")
		d.CellFormat(pdfColumns[2], pdfRowHeight, w.tr(preview(oneLine(row[2]), pdfDetailRune)), "1", 0, "L", true, 0, "")
		d.Ln(-1)
	}
}

func (w *pdfWriter) conclusion(r *models.AnalysisResult) {
	w.heading("Conclusion")
	s := r.Summary
	d := w.doc

	methods := "None"
	if len(s.MethodsWithFinding) > 0 {
		names := make([]string, len(s.MethodsWithFinding))
		for i, m := range s.MethodsWithFinding {
			names[i] = string(m)
		}
		methods = strings.Join(names, ", ")
	}
	extraction := "NOT CONFIRMED"
	if s.ExtractionSuccess {
		extraction = "CONFIRMED"
	}

	d.SetFont("Helvetica", "B", 11)
	w.color(levelRGB(s.SuspicionLevel))
	d.CellFormat(0, 7, "Suspicion level: "+string(s.SuspicionLevel), "", 1, "L", false, 0, "")

	d.SetFont("Helvetica", "", 10)
	w.color(pdfInk)
	d.MultiCell(0, 6, "Methods with findings: "+methods, "", "L", false)
	d.CellFormat(0, 6, fmt.Sprintf("Total findings: %d", s.TotalFindings), "", 1, "L", false, 0, "")
	d.CellFormat(0, 6, "Direct extraction: "+extraction, "", 1, "L", false, 0, "")
	if len(r.Unavailable) > 0 {
		d.MultiCell(0, 6, w.tr("Unavailable detectors: "+strings.Join(r.Unavailable, ", ")), "", "L", false)
	}

	if s.SuspicionLevel.Rank() >= models.SuspicionMedium.Rank() {
		d.Ln(4)
		d.SetFont("Helvetica", "B", 11)
		w.color(pdfRed)
		d.MultiCell(0, 7, "WARNING: this image is likely to contain hidden data", "", "L", false)
	}
}

func levelRGB(l models.SuspicionLevel) rgb {
	switch l {
	case models.SuspicionHigh:
		return pdfRed
	case models.SuspicionMedium:
		return pdfOrange
	default:
		return pdfGreen
	}
}

func status(ok bool) string {
	if ok {
		return "YES"
	}
	return "NO"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// oneLine folds line breaks, a table cell has a single line
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
