package forensic

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"Decodeur/pkg/config"
	"Decodeur/pkg/correlation"
	"Decodeur/pkg/extractor"
	lsbreveal "Decodeur/pkg/extractor/image/lsb"
	"Decodeur/pkg/filehandler"
	"Decodeur/pkg/imaging"
	"Decodeur/pkg/metadata"
	"Decodeur/pkg/models"
	"Decodeur/pkg/ocr"
)

// Options configures an Analyzer. Zero values fall back to defaults: the
// default configuration, a silent logger, no OCR and the built-in revealers.
type Options struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	OCR       []ocr.Engine
	Revealers *extractor.Registry
}

// Analyzer runs a complete analysis of one image: the collaborators (OCR,
// metadata, hidden-message reveal) and the detector pipeline.
type Analyzer struct {
	cfg       config.Config
	logger    zerolog.Logger
	pipeline  *Pipeline
	engines   []ocr.Engine
	revealers *extractor.Registry
}

// DefaultRevealers returns a registry holding the built-in revealers
func DefaultRevealers() *extractor.Registry {
	reg := extractor.NewRegistry()
	reg.Register(lsbreveal.NewLSBExtractor())
	return reg
}

// NewAnalyzer creates an Analyzer
func NewAnalyzer(opts Options) *Analyzer {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	revealers := opts.Revealers
	if revealers == nil {
		revealers = DefaultRevealers()
	}
	return &Analyzer{
		cfg:       cfg,
		logger:    logger,
		pipeline:  NewPipeline(cfg.Thresholds, logger),
		engines:   opts.OCR,
		revealers: revealers,
	}
}

// Pipeline returns the detector pipeline used by the analyzer
func (a *Analyzer) Pipeline() *Pipeline {
	return a.pipeline
}

// AnalyzeFile reads the file at path and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error) {
	raw, err := filehandler.ReadFileBytes(path, a.cfg.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return a.analyze(ctx, filepath.Base(path), abs, raw)
}

// AnalyzeBytes analyzes an in-memory image. OCR needs a file on disk and is
// skipped.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, name string, raw []byte) (*models.AnalysisResult, error) {
	return a.analyze(ctx, name, "", raw)
}

func (a *Analyzer) analyze(ctx context.Context, name, path string, raw []byte) (*models.AnalysisResult, error) {
	start := time.Now()
	logger := a.logger.With().Str("image", name).Logger()

	if len(raw) == 0 {
		return nil, fmt.Errorf("raw buffer: %w", ErrNoInput)
	}
	decoded, err := imaging.Decode(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("decoder", decoded.Format).
		Int("width", decoded.Gray.Width).
		Int("height", decoded.Gray.Height).
		Msg("image decoded")

	var (
		detections Detections
		detectErr  error
		ocrResult  = models.OCRResult{Engines: map[string]models.OCREngineResult{}}
		meta       models.MetadataReport
		hidden     string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detections, detectErr = a.pipeline.Detect(gctx, Input{
			Raw:      raw,
			Gray:     decoded.Gray,
			Channels: decoded.Channels,
		})
		return detectErr
	})
	g.Go(func() error {
		if len(a.engines) == 0 || path == "" {
			return nil
		}
		ocrResult = ocr.Run(gctx, path, a.engines...)
		for engine, r := range ocrResult.Engines {
			if r.Error != "" {
				logger.Debug().Str("engine", engine).Str("error", r.Error).Msg("ocr failed")
			}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		meta, err = metadata.Extract(raw)
		if err != nil {
			logger.Debug().Err(err).Msg("no usable metadata")
		}
		return nil
	})
	g.Go(func() error {
		res, err := a.revealers.Reveal(decoded.Image, decoded.Format, extractor.Options{MaxSize: a.cfg.RevealMaxSize})
		if err != nil {
			logger.Debug().Err(err).Msg("no hidden message revealed")
			return nil
		}
		hidden = res.Message
		logger.Debug().Str("algorithm", res.Algorithm).Int("size", res.DataSize).Msg("hidden message revealed")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := a.pipeline.Correlate(detections, correlation.Signals{
		OCRTextFound:       ocrResult.TextFound(),
		HiddenMessage:      hidden,
		MetadataSuspicious: meta.IsSuspicious(),
	})

	findings := detections.Findings()
	signatures := findings.Signatures
	if signatures == nil {
		signatures = []models.SignatureMatch{}
	}
	digest := blake3.Sum256(raw)

	result := &models.AnalysisResult{
		Image:        name,
		ImagePath:    path,
		AnalysisDate: start,
		Digest:       hex.EncodeToString(digest[:]),
		FileSize:     len(raw),
		Format:       detections.Format,
		Width:        decoded.Gray.Width,
		Height:       decoded.Gray.Height,
		OCR:          ocrResult,
		Steganography: models.Steganography{
			LSB:              hidden,
			Exif:             meta,
			ASCIIStrings:     findings.Strings,
			BinarySignatures: signatures,
			BitPlaneAnomaly:  findings.BitPlane.Anomalous(),
			BitPlaneDetails:  findings.BitPlane,
			HistogramAnomaly: findings.Histogram.Anomalous(),
			HistogramDetails: findings.Histogram,
		},
		Summary:        summary,
		Context:        summary.Context(),
		Unavailable:    detections.Unavailable(),
		RawStringCount: detections.Strings.OrDefault().RawStringCount,
	}
	result.Duration = time.Since(start)

	logger.Info().
		Str("level", string(summary.SuspicionLevel)).
		Int("findings", summary.TotalFindings).
		Dur("took", result.Duration).
		Msg("analysis complete")
	return result, nil
}
