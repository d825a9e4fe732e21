package extractor

import (
	"image"

	"Decodeur/pkg/models"
)

// Options configures a reveal attempt
type Options struct {
	// MaxSize bounds the length of a revealed message in bytes
	MaxSize int
}

// Revealer is the interface that all hidden-message revealers implement
type Revealer interface {
	// Name returns the name of the revealer
	Name() string

	// SupportedFormats returns formats this revealer supports
	SupportedFormats() []string

	// SupportedAlgorithms returns steganography algorithms this revealer handles
	SupportedAlgorithms() []string

	// Reveal attempts to recover a hidden message from a decoded image
	Reveal(img image.Image, opts Options) (*models.ExtractionResult, error)
}

// BaseRevealer holds the descriptive half of a Revealer. Embed it and
// implement Reveal.
type BaseRevealer struct {
	name       string
	algorithms []string
	formats    []string
}

// NewBaseRevealer describes a revealer handling formats with the given algorithms
func NewBaseRevealer(name string, algorithms []string, formats ...string) BaseRevealer {
	return BaseRevealer{name: name, algorithms: algorithms, formats: formats}
}

func (b BaseRevealer) Name() string { return b.name }

func (b BaseRevealer) SupportedFormats() []string { return b.formats }

func (b BaseRevealer) SupportedAlgorithms() []string { return b.algorithms }
