package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Decodeur/pkg/correlation"
	"Decodeur/pkg/models"
)

func sampleResult(imagePath string) *models.AnalysisResult {
	var strs models.StringSet
	strs.Add(models.StringFinding{Category: "password", Text: "password=abc123"})
	strs.Add(models.StringFinding{Category: "trailing_data", Text: "[TRAILING DATA] password=abc123"})

	sigs := []models.SignatureMatch{models.NewSignatureMatch("ZIP", 300)}
	summary := correlation.Correlate(correlation.Findings{Signatures: sigs, Strings: strs}, correlation.Signals{})

	return &models.AnalysisResult{
		Image:     filepath.Base(imagePath),
		ImagePath: imagePath,
		Digest:    strings.Repeat("ab", 32),
		Format:    models.FormatPNG,
		Width:     16,
		Height:    16,
		OCR:       models.OCRResult{Engines: map[string]models.OCREngineResult{}},
		Steganography: models.Steganography{
			Exif:             models.MetadataReport{Standard: map[string]string{}},
			ASCIIStrings:     strs,
			BinarySignatures: sigs,
			BitPlaneDetails:  models.BitPlaneMetrics{Entropy: 0.12, MeanRatio: 0.03},
		},
		Summary: summary,
		Context: summary.Context(),
	}
}

func TestPath(t *testing.T) {
	r := sampleResult("/data/in/cat.photo.png")
	assert.Equal(t, filepath.Join("/data/in", "cat.photo_forensic_report.json"), Path(r, "", "", JSONSuffix))
	assert.Equal(t, filepath.Join("/out", "cat.photo_forensic_report.json"), Path(r, "/out", "", JSONSuffix))
	assert.Equal(t, filepath.Join("/out", "cat_1_forensic_report.pdf"), Path(r, "/out", "cat_1", PDFSuffix))

	mem := &models.AnalysisResult{Image: "mem.png"}
	assert.Equal(t, "mem_forensic_report.json", Path(mem, "", "", JSONSuffix))
	assert.Equal(t, "image_forensic_report.json", Path(&models.AnalysisResult{}, "", "", JSONSuffix))
}

func TestUniqueStems(t *testing.T) {
	paths := []string{
		filepath.Join("ev", "a", "img.png"),
		filepath.Join("ev", "b", "img.png"),
		filepath.Join("ev", "a", "IMG.jpg"),
		filepath.Join("ev", "a", "other.png"),
	}

	t.Run("next to each image", func(t *testing.T) {
		stems := UniqueStems(paths, "")
		assert.Equal(t, "img", stems[1])
		assert.Equal(t, "other", stems[3])
		assert.NotEqual(t, stems[0], stems[2])
		assert.True(t, strings.HasPrefix(stems[0], "img_"))
		assert.True(t, strings.HasPrefix(stems[2], "IMG_"))
	})

	t.Run("shared output directory", func(t *testing.T) {
		stems := UniqueStems(paths, "reports")
		assert.Len(t, stems, 4)
		seen := map[string]bool{}
		for _, s := range stems {
			assert.False(t, seen[strings.ToLower(s)], s)
			seen[strings.ToLower(s)] = true
		}
		assert.Equal(t, "other", stems[3])
		assert.Len(t, stems[0], len("img_")+8)
		assert.Equal(t, stems, UniqueStems(paths, "reports"), "stable across runs")
	})
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	r := sampleResult(filepath.Join(dir, "sample.png"))

	path, err := WriteJSON(r, "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sample_forensic_report.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "sample.png", doc["image"])
	assert.Equal(t, "PNG", doc["format"])

	steg := doc["steganography"].(map[string]interface{})
	sigs := steg["binarySignatures"].([]interface{})
	require.Len(t, sigs, 1)
	assert.Equal(t, "ZIP", sigs[0].(map[string]interface{})["type"])
	assert.Equal(t, "0x12c", sigs[0].(map[string]interface{})["hexOffset"])
	assert.Len(t, steg["asciiStrings"], 2)

	summary := doc["summary"].(map[string]interface{})
	assert.Equal(t, "LOW", summary["suspicionLevel"])
	assert.EqualValues(t, 2, summary["totalFindings"])

	ctx := doc["context"].(map[string]interface{})
	assert.EqualValues(t, 1, ctx["signature_count"])
	assert.Equal(t, false, ctx["has_lsb"])

	var back models.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.ElementsMatch(t, r.Steganography.ASCIIStrings.Texts(), back.Steganography.ASCIIStrings.Texts())
}

func TestTerminal_Render(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, true).Render(sampleResult("/tmp/sample.png"))
	out := buf.String()

	for _, want := range []string{
		"FORENSIC ANALYSIS REPORT",
		"Image analysed: sample.png",
		"[OCR]", "[LSB]", "[EXIF]", "[STRINGS]", "[SIGNATURES]", "[BIT-PLANES]", "[HISTOGRAM]",
		"Strings found: 2",
		"ZIP @ offset 0x12c",
		"Entropy: 0.1200",
		"Methods with findings: STRINGS, SIGNATURES",
		"Suspicion level: LOW",
		"Direct extraction: NOT CONFIRMED",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "WARNING")
	assert.NotContains(t, out, "\x1b[")
}

func TestTerminal_WarningForMediumAndHigh(t *testing.T) {
	r := sampleResult("/tmp/sample.png")
	r.Steganography.LSB = "FLAG{x}"
	r.Summary = correlation.Correlate(correlation.Findings{
		Signatures: r.Steganography.BinarySignatures,
		Strings:    r.Steganography.ASCIIStrings,
	}, correlation.Signals{HiddenMessage: "FLAG{x}"})
	r.Unavailable = []string{"Histogram Analyzer"}

	var buf bytes.Buffer
	NewTerminal(&buf, true).Render(r)
	out := buf.String()

	assert.Contains(t, out, "Suspicion level: MEDIUM")
	assert.Contains(t, out, "Message: FLAG{x}")
	assert.Contains(t, out, "Direct extraction: CONFIRMED")
	assert.Contains(t, out, "Unavailable detectors: Histogram Analyzer")
	assert.Contains(t, out, "[!!!] WARNING")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "éé...", preview("ééé", 2))
}

func TestPDF(t *testing.T) {
	r := sampleResult("/tmp/sample.png")
	r.Steganography.LSB = "FLAG{x}"
	r.Summary = correlation.Correlate(correlation.Findings{
		Signatures: r.Steganography.BinarySignatures,
		Strings:    r.Steganography.ASCIIStrings,
	}, correlation.Signals{HiddenMessage: "FLAG{x}"})

	data, err := PDF(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data[len(data)-16:]), "%%EOF")

	plain, err := renderPDF(r, false)
	require.NoError(t, err)
	out := string(plain)
	for _, want := range []string{
		"Forensic Image Analysis Report",
		"Image analysed:",
		"LSB steganography",
		"Binary signatures",
		"FLAG{x}",
		"Suspicion level: MEDIUM",
		"Direct extraction: CONFIRMED",
		"WARNING: this image is likely to contain hidden data",
		"page 1",
	} {
		assert.Contains(t, out, want)
	}

	again, err := renderPDF(r, false)
	require.NoError(t, err)
	assert.Equal(t, plain, again)
}

func TestPDF_NoWarningBelowMedium(t *testing.T) {
	plain, err := renderPDF(sampleResult("/tmp/sample.png"), false)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "Suspicion level: LOW")
	assert.NotContains(t, string(plain), "WARNING")
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	r := sampleResult(filepath.Join(dir, "in", "sample.png"))

	path, err := WritePDF(r, filepath.Join(dir, "out"), "sample_1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "sample_1_forensic_report.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
