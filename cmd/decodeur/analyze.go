package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"Decodeur/pkg/config"
	"Decodeur/pkg/filehandler"
	"Decodeur/pkg/forensic"
	"Decodeur/pkg/logging"
	"Decodeur/pkg/models"
	"Decodeur/pkg/ocr"
	"Decodeur/pkg/report"
)

type analyzeOptions struct {
	images     []string
	dir        string
	recursive  bool
	url        string
	list       string
	output     string
	configPath string
	verbose    bool
	noColor    bool
	noOCR      bool
	pdf        bool
	workers    int
	timeout    time.Duration
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one or more images for hidden content",
		Example: `  decodeur analyze -i suspect.png
  decodeur analyze --dir ./evidence --recursive -o ./reports
  decodeur analyze --url https://example.com/image.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.images, "image", "i", nil, "image file to analyze (repeatable)")
	f.StringVar(&opts.dir, "dir", "", "analyze every image in a directory")
	f.BoolVar(&opts.recursive, "recursive", false, "descend into subdirectories with --dir")
	f.StringVar(&opts.url, "url", "", "download an image and analyze it")
	f.StringVar(&opts.list, "list", "", "file with one image path or URL per line")
	f.StringVarP(&opts.output, "output", "o", "", "directory for reports (default: next to each image)")
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default: .decodeur.yml in the working directory)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colorized output")
	f.BoolVar(&opts.noOCR, "no-ocr", false, "skip OCR")
	f.BoolVar(&opts.pdf, "pdf", false, "also write a PDF report")
	f.IntVar(&opts.workers, "workers", 0, "images analyzed in parallel (0 = GOMAXPROCS)")
	f.DurationVar(&opts.timeout, "timeout", filehandler.DefaultTimeout, "download timeout")
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		return fc.Resolve(), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	fc, err := config.LoadLocal(wd)
	if errors.Is(err, config.ErrNoLocalConfig) {
		return config.Default(), nil
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fc.Resolve(), nil
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.noColor {
		cfg.NoColor = true
	}
	if opts.noOCR {
		cfg.OCR = false
	}
	if opts.output != "" {
		cfg.OutputDir = opts.output
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	// batch workers share both writers
	out := console{w: zerolog.SyncWriter(cmd.OutOrStdout())}
	logger := logging.New(zerolog.SyncWriter(cmd.ErrOrStderr()), "decodeur", opts.verbose)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	targets, err := gatherTargets(ctx, out, opts, cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("nothing to analyze: use --image, --dir, --url or --list")
	}

	a := forensic.NewAnalyzer(forensic.Options{
		Config: &cfg,
		Logger: &logger,
		OCR:    ocrEngines(out, logger, cfg),
	})

	w := reportWriter{dir: cfg.OutputDir, pdf: opts.pdf}
	if len(targets) == 1 {
		res, err := analyzeOne(ctx, out, a, w, targets[0], "")
		if err != nil {
			return err
		}
		report.NewTerminal(out.w, cfg.NoColor).Render(res)
		return nil
	}
	return analyzeMany(ctx, out, a, w, cfg.NoColor, targets, opts.workers)
}

func ocrEngines(out console, logger zerolog.Logger, cfg config.Config) []ocr.Engine {
	if !cfg.OCR {
		return nil
	}
	eng, err := ocr.NewTesseract(cfg.OCRBinary, cfg.OCRLanguages)
	if err != nil {
		logger.Debug().Err(err).Msg("ocr disabled")
		out.warning("tesseract not found, OCR disabled")
		return nil
	}
	return []ocr.Engine{eng}
}

// gatherTargets resolves every input flag into local image paths,
// downloading URLs first.
func gatherTargets(ctx context.Context, out console, opts analyzeOptions, cfg config.Config) ([]string, error) {
	var targets []string
	download := func(url string) (string, error) {
		dir := cfg.OutputDir
		if dir == "" {
			dir = os.TempDir()
		}
		out.info("Downloading from %s", url)
		p, err := filehandler.DownloadFile(ctx, url, filepath.Join(dir, "downloads"), opts.timeout, cfg.MaxFileBytes)
		if err != nil {
			return "", err
		}
		out.success("Downloaded to %s", p)
		return p, nil
	}

	for _, img := range opts.images {
		if _, err := filehandler.DetectFileFormat(img); err != nil {
			out.warning("%s: %v", img, err)
		}
		targets = append(targets, img)
	}

	if opts.url != "" {
		p, err := download(opts.url)
		if err != nil {
			return nil, err
		}
		targets = append(targets, p)
	}

	if opts.list != "" {
		lines, err := filehandler.ReadLines(opts.list)
		if err != nil {
			return nil, fmt.Errorf("failed to read list: %w", err)
		}
		for _, line := range lines {
			if !filehandler.IsURL(line) {
				targets = append(targets, line)
				continue
			}
			p, err := download(line)
			if err != nil {
				out.error("Failed to download %s: %v", line, err)
				continue
			}
			targets = append(targets, p)
		}
	}

	if opts.dir != "" {
		var files []string
		var err error
		if opts.recursive {
			files, err = filehandler.FilesInDirectory(opts.dir, filehandler.ImageExtensions())
		} else {
			files, err = filehandler.GatherImages(opts.dir)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		out.info("Found %d images in %s", len(files), opts.dir)
		targets = append(targets, files...)
	}
	return targets, nil
}

// reportWriter saves the report files of one run
type reportWriter struct {
	dir string
	pdf bool
}

func (w reportWriter) write(out console, res *models.AnalysisResult, stem string) {
	writers := []func(*models.AnalysisResult, string, string) (string, error){report.WriteJSON}
	if w.pdf {
		writers = append(writers, report.WritePDF)
	}
	for _, write := range writers {
		p, err := write(res, w.dir, stem)
		if err != nil {
			out.error("Failed to write report: %v", err)
			continue
		}
		out.success("Report saved to %s", p)
	}
}

func analyzeOne(ctx context.Context, out console, a *forensic.Analyzer, w reportWriter, path, stem string) (*models.AnalysisResult, error) {
	out.info("Analyzing %s", path)
	res, err := a.AnalyzeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w.write(out, res, stem)
	return res, nil
}

// analyzeMany runs the analyses on a bounded worker pool and then prints
// each report in input order, followed by a summary.
func analyzeMany(ctx context.Context, out console, a *forensic.Analyzer, w reportWriter, noColor bool, targets []string, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// same-named images must not share a report file
	stems := report.UniqueStems(targets, w.dir)
	results := make([]*models.AnalysisResult, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range targets {
		i, path := i, path
		g.Go(func() error {
			results[i], errs[i] = analyzeOne(ctx, out, a, w, path, stems[i])
			return nil
		})
	}
	_ = g.Wait()

	term := report.NewTerminal(out.w, noColor)
	var done []*models.AnalysisResult
	for i, res := range results {
		if errs[i] != nil {
			out.error("%v", errs[i])
			continue
		}
		term.Render(res)
		done = append(done, res)
	}
	printSummary(out, done)

	if len(done) == 0 {
		return errors.New("no image could be analyzed")
	}
	return nil
}

func printSummary(out console, results []*models.AnalysisResult) {
	counts := map[models.SuspicionLevel]int{}
	for _, r := range results {
		counts[r.Summary.SuspicionLevel]++
	}

	fmt.Fprintln(out.w, "\n=== Analysis Summary ===")
	fmt.Fprintf(out.w, "Total images analyzed: %d\n", len(results))
	out.success("Clean (NONE/LOW): %d", counts[models.SuspicionNone]+counts[models.SuspicionLow])
	if n := counts[models.SuspicionMedium]; n > 0 {
		out.warning("Suspicious (MEDIUM): %d", n)
	}
	if n := counts[models.SuspicionHigh]; n > 0 {
		out.alert("Highly suspicious (HIGH): %d", n)
		for _, r := range results {
			if r.Summary.SuspicionLevel == models.SuspicionHigh {
				fmt.Fprintf(out.w, "- %s (%d methods)\n", r.ImagePath, r.Summary.TotalFindings)
			}
		}
	}
}
