// Package report renders analysis results as a JSON file, a PDF document and
// a colored terminal report.
package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"Decodeur/pkg/filehandler"
	"Decodeur/pkg/models"
)

const (
	// JSONSuffix is appended to the report stem to name the JSON report
	JSONSuffix = "_forensic_report.json"

	// PDFSuffix is appended to the report stem to name the PDF report
	PDFSuffix = "_forensic_report.pdf"
)

// JSON returns the indented JSON form of a result
func JSON(result *models.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// Stem names the reports of an image after its base name without extension
func Stem(imagePath string) string {
	name := filepath.Base(imagePath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "image"
	}
	return stem
}

// Dir returns the directory a report for imagePath goes to. An empty dir
// means the directory of the image, or the working directory for in-memory
// images.
func Dir(imagePath, dir string) string {
	if dir != "" {
		return dir
	}
	if imagePath == "" {
		return "."
	}
	return filepath.Dir(imagePath)
}

// UniqueStems returns one report stem per image. Images whose reports
// would land on the same file in dir all get a short tag derived from
// their path, so a batch never overwrites its own reports.
func UniqueStems(imagePaths []string, dir string) []string {
	stems := make([]string, len(imagePaths))
	keys := make([]string, len(imagePaths))
	count := make(map[string]int, len(imagePaths))
	for i, p := range imagePaths {
		stems[i] = Stem(p)
		d := Dir(p, dir)
		if abs, err := filepath.Abs(d); err == nil {
			d = abs
		}
		keys[i] = strings.ToLower(filepath.Join(d, stems[i]))
		count[keys[i]]++
	}
	for i, p := range imagePaths {
		if count[keys[i]] > 1 {
			stems[i] += "_" + pathTag(p)
		}
	}
	return stems
}

// pathTag is the first four bytes of the blake3 of the absolute path, in hex
func pathTag(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	sum := blake3.Sum256([]byte(p))
	return hex.EncodeToString(sum[:4])
}

// Path returns where a report for result is written. An empty stem is
// derived from the image name.
func Path(result *models.AnalysisResult, dir, stem, suffix string) string {
	if stem == "" {
		stem = Stem(result.Image)
	}
	return filepath.Join(Dir(result.ImagePath, dir), stem+suffix)
}

// WriteJSON writes the JSON report and returns its path
func WriteJSON(result *models.AnalysisResult, dir, stem string) (string, error) {
	data, err := JSON(result)
	if err != nil {
		return "", err
	}
	return save(data, Path(result, dir, stem, JSONSuffix))
}

// WritePDF writes the PDF report and returns its path
func WritePDF(result *models.AnalysisResult, dir, stem string) (string, error) {
	data, err := PDF(result)
	if err != nil {
		return "", err
	}
	return save(data, Path(result, dir, stem, PDFSuffix))
}

func save(data []byte, path string) (string, error) {
	if err := filehandler.SaveFile(data, path); err != nil {
		return "", err
	}
	return path, nil
}
