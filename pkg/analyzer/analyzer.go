package analyzer

import (
	"fmt"

	"Decodeur/pkg/models"
)

/*
Analyzer.go holds what the detectors have in common.
Detector: interface every detector satisfies so the pipeline can name and log it.
BaseAnalyzer: struct embedded by detectors, carrying name, description and the correlation method the detector feeds.
Outcome: the per-detector result, either a populated value or an explicit "unavailable" marker carrying the local failure.
Detectors never read each other's outcomes; the pipeline collects them and hands them to correlation.
*/

// Detector is the interface implemented by every detector
type Detector interface {
	// Name returns the name of the detector
	Name() string

	// Description returns a detailed description of what the detector does
	Description() string

	// Method returns the correlation method this detector feeds
	Method() models.Method
}

// BaseAnalyzer provides common functionality for detectors
type BaseAnalyzer struct {
	name        string
	description string
	method      models.Method
}

// NewBaseAnalyzer creates a new BaseAnalyzer
func NewBaseAnalyzer(name, description string, method models.Method) BaseAnalyzer {
	return BaseAnalyzer{
		name:        name,
		description: description,
		method:      method,
	}
}

// Name returns the detector name
func (b *BaseAnalyzer) Name() string {
	return b.name
}

// Description returns the detector description
func (b *BaseAnalyzer) Description() string {
	return b.description
}

// Method returns the correlation method
func (b *BaseAnalyzer) Method() models.Method {
	return b.method
}

// Outcome is the result of running one detector. An outcome with a non-nil
// Err is unavailable and correlates as "no finding".
type Outcome[T any] struct {
	Value T
	Err   error
}

// Available wraps a successful detector value
func Available[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Unavailable marks a detector that failed locally
func Unavailable[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// Ok reports whether the detector produced a value
func (o Outcome[T]) Ok() bool {
	return o.Err == nil
}

// OrDefault returns the value, or the zero value when unavailable
func (o Outcome[T]) OrDefault() T {
	if o.Err != nil {
		var zero T
		return zero
	}
	return o.Value
}

// Run calls fn and converts an error or a panic into an unavailable outcome
func Run[T any](fn func() (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Unavailable[T](fmt.Errorf("detector panic: %v", r))
		}
	}()
	v, err := fn()
	if err != nil {
		return Unavailable[T](err)
	}
	return Available(v)
}
