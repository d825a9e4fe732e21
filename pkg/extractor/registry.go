package extractor

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"Decodeur/pkg/models"
)

var (
	// ErrNoRevealer is returned when no revealer is registered for a format
	ErrNoRevealer = errors.New("no revealer for format")

	// ErrNothingRevealed is returned when every revealer ran without finding a message
	ErrNothingRevealed = errors.New("nothing revealed")
)

// Registry holds the available revealers keyed by format
type Registry struct {
	revealers map[string][]Revealer
	mu        sync.RWMutex
}

// NewRegistry creates a new revealer registry
func NewRegistry() *Registry {
	return &Registry{
		revealers: make(map[string][]Revealer),
	}
}

// Register adds a revealer under each format it supports
func (r *Registry) Register(rv Revealer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, format := range rv.SupportedFormats() {
		key := strings.ToLower(format)
		r.revealers[key] = append(r.revealers[key], rv)
	}
}

// ForFormat returns all revealers that support the given format
func (r *Registry) ForFormat(format string) []Revealer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.revealers[strings.ToLower(format)]
}

// SupportedFormats returns the formats that have registered revealers, sorted
func (r *Registry) SupportedFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]string, 0, len(r.revealers))
	for format := range r.revealers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Reveal tries every revealer registered for format in registration order
// and returns the first successful result. When all fail, their errors are
// joined.
func (r *Registry) Reveal(img image.Image, format string, opts Options) (*models.ExtractionResult, error) {
	revealers := r.ForFormat(format)
	if len(revealers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRevealer, format)
	}

	var errs []error
	for _, rv := range revealers {
		res, err := rv.Reveal(img, opts)
		if err == nil && res != nil && res.Success {
			return res, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rv.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil, ErrNothingRevealed
	}
	return nil, errors.Join(errs...)
}
