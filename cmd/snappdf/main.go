// snappdf exports a live web page as a paginated, image-based PDF.
//
// Usage:
//
//	snappdf watch [options] <url>
//	snappdf export [options] <url>
//	snappdf layout <width> <height>
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	snappdf "github.com/porticus-lab/go-snap-pdf"
	"github.com/porticus-lab/go-snap-pdf/internal/config"
	"github.com/porticus-lab/go-snap-pdf/internal/logger"
	"github.com/porticus-lab/go-snap-pdf/internal/metrics"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "watch":
		err = runWatch(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "layout":
		err = runLayout(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`snappdf - export a live web page as a paginated PDF

Usage:
  snappdf watch [options] <url>
  snappdf export [options] <url>
  snappdf layout [-page <size>] <width> <height>

Commands:
  watch     Open <url> in a visible browser and export on every click
            of the trigger control until interrupted
  export    Capture <url> once in a headless browser
  layout    Print the page plan for a capture of <width>x<height> pixels

Options:
  -o <dir>        Output directory (default: $SNAPPDF_OUTPUT_DIR or .)
  -name <file>    Output file name (default: storyboard.pdf)
  -id <id>        Trigger control id (default: btn-print)
  -page <size>    Page size: a3, a4, a5 or letter (default: a4)
  -chrome <path>  Chrome/Chromium executable
  -download       Download a pinned Chromium when none is installed
  -metrics <addr> Serve Prometheus metrics on <addr>
  -env <file>     Read environment from a dotenv file (default: .env)

Examples:
  snappdf watch http://localhost:8050/storyboard
  snappdf export -o out -download http://localhost:8050/storyboard
  snappdf layout 2000 8500
`)
}

// options are the flags shared by watch and export.
type options struct {
	url     string
	dotenv  string
	outDir  string
	name    string
	id      string
	page    string
	chrome  string
	dl      bool
	metrics string
}

func parseOptions(args []string) (options, error) {
	opts := options{dotenv: ".env"}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("%s requires an argument", arg)
			}
			return args[i], nil
		}
		var err error
		switch arg {
		case "-o":
			opts.outDir, err = next()
		case "-name":
			opts.name, err = next()
		case "-id":
			opts.id, err = next()
		case "-page":
			opts.page, err = next()
		case "-chrome":
			opts.chrome, err = next()
		case "-metrics":
			opts.metrics, err = next()
		case "-env":
			opts.dotenv, err = next()
		case "-download":
			opts.dl = true
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown option: %s", arg)
			}
			opts.url = arg
		}
		if err != nil {
			return opts, err
		}
	}
	if opts.url == "" {
		return opts, fmt.Errorf("no url specified")
	}
	return opts, nil
}

// setup loads configuration, applies flag overrides and starts logging.
func setup(opts options) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(opts.dotenv)
	if err != nil {
		return cfg, zerolog.Nop(), fmt.Errorf("loading %s: %w", opts.dotenv, err)
	}
	if opts.outDir != "" {
		cfg.Export.OutputDir = opts.outDir
	}
	if opts.name != "" {
		cfg.Export.FileName = opts.name
	}
	if opts.id != "" {
		cfg.Export.ControlID = opts.id
	}
	if opts.page != "" {
		cfg.Export.PageSize = opts.page
	}
	if opts.chrome != "" {
		cfg.Browser.ChromePath = opts.chrome
	}
	if opts.dl {
		cfg.Browser.AutoDownload = true
	}
	if opts.metrics != "" {
		cfg.MetricsAddr = opts.metrics
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		Pretty:     cfg.Logging.Pretty,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, logger.Get(), nil
}

func newRegistry(cfg config.Config, log zerolog.Logger, headless bool) *snappdf.Registry {
	bopts := []snappdf.Option{
		snappdf.WithHeadless(headless),
		snappdf.WithLogger(log),
		snappdf.WithWindowSize(cfg.Browser.WindowWidth, cfg.Browser.WindowHeight),
		snappdf.WithRevision(cfg.Browser.Revision),
		snappdf.WithDownloadDir(cfg.Browser.DownloadDir),
	}
	if cfg.Browser.ChromePath != "" {
		bopts = append(bopts, snappdf.WithChromePath(cfg.Browser.ChromePath))
	}
	if cfg.Browser.AutoDownload {
		bopts = append(bopts, snappdf.WithAutoDownload())
	}
	if cfg.Browser.NoSandbox {
		bopts = append(bopts, snappdf.WithNoSandbox())
	}

	reg := snappdf.NewRegistry(log)
	reg.Register(snappdf.CaptureCapability, snappdf.NewBrowserLoader(bopts...))
	reg.Register(snappdf.AssemblyCapability, snappdf.NewAssemblerLoader("snappdf"))
	return reg
}

func exportOptions(cfg config.Config, log zerolog.Logger, n snappdf.Notifier) ([]snappdf.ExportOption, error) {
	g, err := snappdf.GeometryByName(cfg.Export.PageSize)
	if err != nil {
		return nil, err
	}
	return []snappdf.ExportOption{
		snappdf.WithGeometry(g),
		snappdf.WithFileName(cfg.Export.FileName),
		snappdf.WithScale(cfg.Export.Scale),
		snappdf.WithJPEGQuality(cfg.Export.JPEGQuality),
		snappdf.WithCaptureTimeout(cfg.Export.CaptureTimeout),
		snappdf.WithDeliverer(snappdf.DirDeliverer{Dir: cfg.Export.OutputDir}),
		snappdf.WithNotifier(n),
		snappdf.WithExportLogger(log),
	}, nil
}

func serveMetrics(addr string, log zerolog.Logger) {
	if addr == "" {
		return
	}
	metrics.Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
}

// runWatch implements the "watch" command.
func runWatch(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()
	serveMetrics(cfg.MetricsAddr, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := newRegistry(cfg, log, false)
	defer reg.Close()

	// The browser is acquired before anything is bound: a load failure
	// stops here without touching the page.
	v, err := reg.Ensure(ctx, snappdf.CaptureCapability)
	if err != nil {
		return err
	}
	page, err := v.(*snappdf.Browser).Open(ctx, opts.url)
	if err != nil {
		return err
	}

	eopts, err := exportOptions(cfg, log, page)
	if err != nil {
		return err
	}
	exp := snappdf.NewExporter(reg, eopts...)
	binder := snappdf.NewBinder(page, cfg.Export.ControlID, exp.Handle, log)

	log.Info().Str("url", opts.url).Str("control", cfg.Export.ControlID).Msg("watching page")
	if err := binder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runExport implements the "export" command.
func runExport(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := newRegistry(cfg, log, true)
	defer reg.Close()

	v, err := reg.Ensure(ctx, snappdf.CaptureCapability)
	if err != nil {
		return err
	}
	if _, err := v.(*snappdf.Browser).Open(ctx, opts.url); err != nil {
		return err
	}

	eopts, err := exportOptions(cfg, log, snappdf.LogNotifier{Log: log})
	if err != nil {
		return err
	}
	exp := snappdf.NewExporter(reg, eopts...)
	s, err := exp.Export(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", s.Path, s.Result)
	return nil
}

// runLayout implements the "layout" command.
func runLayout(args []string) error {
	g := snappdf.A4Portrait
	if len(args) > 0 && args[0] == "-page" {
		if len(args) < 2 {
			return fmt.Errorf("-page requires an argument")
		}
		var err error
		if g, err = snappdf.GeometryByName(args[1]); err != nil {
			return err
		}
		args = args[2:]
	}
	if len(args) != 2 {
		return fmt.Errorf("layout requires <width> <height>")
	}
	w, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[0], err)
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[1], err)
	}

	l, err := snappdf.Paginate(w, h, g)
	if err != nil {
		return err
	}
	fmt.Printf("image: %.1f x %.1f mm on %.0f x %.0f mm pages\n",
		l.ImageWidth, l.ImageHeight, l.Geometry.Width, l.Geometry.Height)
	fmt.Printf("pages: %d\n", l.Pages())
	for _, p := range l.Placements {
		fmt.Printf("  page %d: y = %.1f mm\n", p.Page+1, p.Y)
	}
	return nil
}
