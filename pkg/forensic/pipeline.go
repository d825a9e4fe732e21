// Package forensic runs the detectors over one image and correlates their
// findings with the collaborator signals.
package forensic

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"Decodeur/pkg/analyzer"
	"Decodeur/pkg/analyzer/image/histogram"
	"Decodeur/pkg/analyzer/image/lsb"
	"Decodeur/pkg/analyzer/signature"
	"Decodeur/pkg/analyzer/strscan"
	"Decodeur/pkg/config"
	"Decodeur/pkg/correlation"
	"Decodeur/pkg/models"
)

// ErrNoInput is returned when the raw buffer or the pixel planes are missing
var ErrNoInput = errors.New("no input to analyze")

// Input is everything the detectors read. Nothing in it is modified.
type Input struct {
	Raw      []byte
	Gray     models.Plane
	Channels [3]models.Plane // blue, green, red
}

func (in Input) validate() error {
	if len(in.Raw) == 0 {
		return fmt.Errorf("raw buffer: %w", ErrNoInput)
	}
	if in.Gray.Empty() {
		return fmt.Errorf("grayscale plane: %w", ErrNoInput)
	}
	for i, c := range in.Channels {
		if c.Empty() {
			return fmt.Errorf("%s plane: %w", histogram.ChannelNames[i], ErrNoInput)
		}
	}
	return nil
}

// Detections holds one outcome per detector
type Detections struct {
	Format     models.DeclaredFormat
	Signatures analyzer.Outcome[[]models.SignatureMatch]
	Strings    analyzer.Outcome[strscan.Result]
	BitPlane   analyzer.Outcome[models.BitPlaneMetrics]
	Histogram  analyzer.Outcome[models.HistogramReport]

	names map[models.Method]string
}

// Findings returns the correlation input. Unavailable detectors contribute
// their zero value.
func (d Detections) Findings() correlation.Findings {
	return correlation.Findings{
		Signatures: d.Signatures.OrDefault(),
		Strings:    d.Strings.OrDefault().Findings,
		BitPlane:   d.BitPlane.OrDefault(),
		Histogram:  d.Histogram.OrDefault(),
	}
}

// Unavailable lists the detectors that failed locally, in a fixed order
func (d Detections) Unavailable() []string {
	var out []string
	add := func(m models.Method, ok bool) {
		if !ok {
			out = append(out, d.names[m])
		}
	}
	add(models.MethodSignatures, d.Signatures.Ok())
	add(models.MethodStrings, d.Strings.Ok())
	add(models.MethodBitPlanes, d.BitPlane.Ok())
	add(models.MethodHistogram, d.Histogram.Ok())
	return out
}

// Pipeline runs the four core detectors and the correlation step
type Pipeline struct {
	logger    zerolog.Logger
	scanner   *signature.Scanner
	strings   *strscan.Extractor
	bitPlane  *lsb.Analyzer
	histogram *histogram.Analyzer
}

// NewPipeline creates a pipeline with the given thresholds
func NewPipeline(t config.DetectionThresholds, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		logger:    logger,
		scanner:   signature.NewScanner(t),
		strings:   strscan.NewExtractor(t),
		bitPlane:  lsb.NewAnalyzer(t),
		histogram: histogram.NewAnalyzer(t),
	}
}

// Detectors returns the detectors in the order they are reported
func (p *Pipeline) Detectors() []analyzer.Detector {
	return []analyzer.Detector{p.scanner, p.strings, p.bitPlane, p.histogram}
}

// Detect runs every detector concurrently. Each goroutine writes only its
// own outcome, so no locking is needed. A detector that errors or panics is
// marked unavailable and logged; it never aborts the others.
func (p *Pipeline) Detect(ctx context.Context, in Input) (Detections, error) {
	if err := ctx.Err(); err != nil {
		return Detections{}, err
	}
	if err := in.validate(); err != nil {
		return Detections{}, err
	}

	d := Detections{
		Format: models.DetectDeclaredFormat(in.Raw),
		names:  make(map[models.Method]string),
	}
	for _, det := range p.Detectors() {
		d.names[det.Method()] = det.Name()
	}

	var g errgroup.Group
	g.Go(func() error {
		d.Signatures = analyzer.Run(func() ([]models.SignatureMatch, error) {
			return p.scanner.Scan(in.Raw, d.Format), nil
		})
		return nil
	})
	g.Go(func() error {
		d.Strings = analyzer.Run(func() (strscan.Result, error) {
			return p.strings.Extract(in.Raw, d.Format), nil
		})
		return nil
	})
	g.Go(func() error {
		d.BitPlane = analyzer.Run(func() (models.BitPlaneMetrics, error) {
			return p.bitPlane.Analyze(in.Gray)
		})
		return nil
	})
	g.Go(func() error {
		d.Histogram = analyzer.Run(func() (models.HistogramReport, error) {
			return p.histogram.Analyze(in.Channels)
		})
		return nil
	})
	_ = g.Wait()

	p.logUnavailable(models.MethodSignatures, d.names, d.Signatures.Err)
	p.logUnavailable(models.MethodStrings, d.names, d.Strings.Err)
	p.logUnavailable(models.MethodBitPlanes, d.names, d.BitPlane.Err)
	p.logUnavailable(models.MethodHistogram, d.names, d.Histogram.Err)

	return d, nil
}

func (p *Pipeline) logUnavailable(m models.Method, names map[models.Method]string, err error) {
	if err == nil {
		return
	}
	p.logger.Warn().Str("detector", names[m]).Err(err).Msg("detector unavailable")
}

// Correlate fuses the detections with the collaborator signals. The
// summary always covers all seven methods.
func (p *Pipeline) Correlate(d Detections, signals correlation.Signals) models.FindingsSummary {
	summary := correlation.Correlate(d.Findings(), signals)
	p.logger.Debug().
		Int("total", summary.TotalFindings).
		Str("level", string(summary.SuspicionLevel)).
		Strs("methods", methodNames(summary.MethodsWithFinding)).
		Msg("correlated")
	return summary
}

// Run detects and then correlates
func (p *Pipeline) Run(ctx context.Context, in Input, signals correlation.Signals) (Detections, models.FindingsSummary, error) {
	d, err := p.Detect(ctx, in)
	if err != nil {
		return Detections{}, models.FindingsSummary{}, err
	}
	return d, p.Correlate(d, signals), nil
}

func methodNames(methods []models.Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}
