// Package ocr recognizes visible text in an image by shelling out to an
// OCR engine.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"Decodeur/pkg/models"
)

// ErrEngineNotFound is returned when the engine binary cannot be located
var ErrEngineNotFound = errors.New("ocr engine not found")

// Engine recognizes text in the image at path
type Engine interface {
	Name() string
	Recognize(ctx context.Context, path string) (string, error)
}

// TesseractEngine runs the tesseract command line tool
type TesseractEngine struct {
	binary    string
	languages string
}

// NewTesseract locates the tesseract binary. An empty binary searches $PATH.
func NewTesseract(binary, languages string) (*TesseractEngine, error) {
	if binary == "" {
		binary = "tesseract"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, binary)
	}
	if languages == "" {
		languages = "eng"
	}
	return &TesseractEngine{binary: path, languages: languages}, nil
}

// Name returns the engine name
func (t *TesseractEngine) Name() string {
	return "tesseract"
}

// Recognize runs `tesseract <path> stdout -l <languages>` and returns the
// trimmed text.
func (t *TesseractEngine) Recognize(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, path, "stdout", "-l", t.languages)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Run feeds path to every engine. An engine counts as successful only when
// it returned non-empty text.
func Run(ctx context.Context, path string, engines ...Engine) models.OCRResult {
	result := models.OCRResult{Engines: make(map[string]models.OCREngineResult, len(engines))}
	for _, e := range engines {
		text, err := e.Recognize(ctx, path)
		r := models.OCREngineResult{Text: text, Success: err == nil && text != ""}
		if err != nil {
			r.Error = err.Error()
		}
		result.Engines[e.Name()] = r
	}
	return result
}
