package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, trailer []byte) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 100, G: 120, B: 140, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	buf.Write(trailer)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormatsCommand(t *testing.T) {
	out, err := execute(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, ".png")
	assert.Contains(t, out, "Revealers by format:")
	assert.Contains(t, out, "- png: LSB Extractor")
}

func TestAnalyzeCommand_SingleImage(t *testing.T) {
	dir := t.TempDir()
	reports := t.TempDir()
	img := writePNG(t, dir, "evidence.png", []byte("password=hunter2"))

	out, err := execute(t, "analyze", "-i", img, "--no-ocr", "--no-color", "-o", reports)
	require.NoError(t, err)

	assert.Contains(t, out, "FORENSIC ANALYSIS REPORT")
	assert.Contains(t, out, "Report saved to")
	assert.FileExists(t, filepath.Join(reports, "evidence_forensic_report.json"))
}

func TestAnalyzeCommand_Directory(t *testing.T) {
	dir := t.TempDir()
	reports := t.TempDir()
	writePNG(t, dir, "a.png", nil)
	writePNG(t, dir, "b.png", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	out, err := execute(t, "analyze", "--dir", dir, "--no-ocr", "--no-color", "-o", reports, "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 2 images")
	assert.Contains(t, out, "Total images analyzed: 2")
	assert.FileExists(t, filepath.Join(reports, "a_forensic_report.json"))
	assert.FileExists(t, filepath.Join(reports, "b_forensic_report.json"))
}

func TestAnalyzeCommand_SameNameInSubdirectories(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(t.TempDir(), "reports")
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0755))
	}
	writePNG(t, filepath.Join(dir, "a"), "img.png", []byte("FLAG{from_a}"))
	writePNG(t, filepath.Join(dir, "b"), "img.png", []byte("FLAG{from_b}"))

	out, err := execute(t, "analyze", "--dir", dir, "--recursive", "--no-ocr", "--no-color", "-o", reports)
	require.NoError(t, err)
	assert.Contains(t, out, "Total images analyzed: 2")

	files, err := filepath.Glob(filepath.Join(reports, "img_*_forensic_report.json"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	var bodies []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		bodies = append(bodies, string(data))
	}
	joined := strings.Join(bodies, "\n")
	assert.Contains(t, joined, "FLAG{from_a}")
	assert.Contains(t, joined, "FLAG{from_b}")
}

func TestAnalyzeCommand_PDF(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "evidence.png", nil)

	out, err := execute(t, "analyze", "-i", img, "--no-ocr", "--no-color", "--pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "evidence_forensic_report.pdf")

	pdf := filepath.Join(dir, "evidence_forensic_report.pdf")
	require.FileExists(t, pdf)
	assert.FileExists(t, filepath.Join(dir, "evidence_forensic_report.json"))
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestEncodeCommand_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cover := writePNG(t, dir, "cover.png", nil)
	big := filepath.Join(dir, "big.png")
	img := image.NewNRGBA(image.Rect(0, 0, 160, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x90
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(big, buf.Bytes(), 0644))

	out, err := execute(t, "encode", "-i", big, "--message", "meet at dawn")
	require.NoError(t, err)
	planted := filepath.Join(dir, "big_encoded.png")
	assert.Contains(t, out, "Test image written to "+planted)
	assert.Contains(t, out, "OCR, LSB, EXIF, STRINGS, SIGNATURES")

	out, err = execute(t, "analyze", "-i", planted, "--no-ocr", "--no-color", "-o", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Message: meet at dawn")
	assert.Contains(t, out, "Direct extraction: CONFIRMED")
	assert.Contains(t, out, "[!!!] WARNING")

	// the 8x8 cover cannot hold the default message
	_, err = execute(t, "encode", "-i", cover)
	assert.Error(t, err)
	_, err = execute(t, "encode")
	assert.Error(t, err)
}

func TestAnalyzeCommand_List(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "listed.png", nil)
	list := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(list, []byte("# evidence\n"+img+"\n"), 0644))

	_, err := execute(t, "analyze", "--list", list, "--no-ocr", "--no-color", "-o", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "listed_forensic_report.json"))
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	_, err := execute(t, "analyze", "--no-ocr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to analyze")

	_, err = execute(t, "analyze", "-i", filepath.Join(t.TempDir(), "missing.png"), "--no-ocr", "--no-color")
	require.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = execute(t, "analyze", "-i", empty, "--no-ocr", "--no-color")
	require.Error(t, err)
}

func TestAnalyzeCommand_BadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("max_file_bytes: [nope"), 0644))

	_, err := execute(t, "analyze", "--config", cfg, "-i", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
