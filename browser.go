package snappdf

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// BrowserLoader is the [Loader] of the surface capture capability. It
// resolves a Chromium executable, downloading a pinned revision when
// allowed, and starts it.
type BrowserLoader struct {
	cfg browserConfig
}

// NewBrowserLoader returns a loader configured by opts.
func NewBrowserLoader(opts ...Option) *BrowserLoader {
	cfg := defaultBrowserConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &BrowserLoader{cfg: cfg}
}

// Load resolves the executable and starts the browser.
func (l *BrowserLoader) Load(ctx context.Context) (any, error) {
	path, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return startBrowser(l.cfg, path)
}

// resolve finds a local Chromium, falling back to a download.
func (l *BrowserLoader) resolve(ctx context.Context) (string, error) {
	if l.cfg.chromePath != "" {
		if _, err := os.Stat(l.cfg.chromePath); err != nil {
			return "", fmt.Errorf("chrome path: %w", err)
		}
		return l.cfg.chromePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	if !l.cfg.autoDownload {
		return "", fmt.Errorf("no Chrome/Chromium found and auto download is disabled")
	}
	return downloadBrowser(ctx, l.cfg)
}

// downloadBrowser fetches a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows)
// unless a download directory is configured.
func downloadBrowser(ctx context.Context, cfg browserConfig) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	if cfg.revision > 0 {
		b.Revision = cfg.revision
	}
	if cfg.downloadDir != "" {
		b.RootDir = cfg.downloadDir
	}
	cfg.log.Info().Int("revision", b.Revision).Msg("downloading chromium")
	path, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}
	return path, nil
}

// Browser is a running Chromium process with at most one open page.
// It implements [Capturer] over that page.
//
// Call [Browser.Close] when the Browser is no longer needed to release
// browser resources.
type Browser struct {
	cfg           browserConfig
	execPath      string
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	page   *LivePage
}

func startBrowser(cfg browserConfig, execPath string) (*Browser, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(cfg.windowWidth, cfg.windowHeight),
	)
	if cfg.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at load time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	cfg.log.Info().Str("exec", execPath).Bool("headless", cfg.headless).Msg("browser started")
	return &Browser{
		cfg:           cfg,
		execPath:      execPath,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// ExecPath returns the executable the browser was started from.
func (b *Browser) ExecPath() string {
	return b.execPath
}

// Open navigates a new tab to rawURL and installs the trigger hook.
// A previously opened page is closed.
func (b *Browser) Open(ctx context.Context, rawURL string) (*LivePage, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}

	p, err := openLivePage(ctx, b.browserCtx, rawURL, b.cfg.log)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	prev := b.page
	b.page = p
	b.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return p, nil
}

// Page returns the currently open page, or nil.
func (b *Browser) Page() *LivePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Capture captures the currently open page.
func (b *Browser) Capture(ctx context.Context, opts CaptureOptions) (*Capture, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	p := b.Page()
	if p == nil {
		return nil, ErrNoPage
	}
	return p.Capture(ctx, opts)
}

// Close releases all resources held by the Browser, including the
// browser process. Close is idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.page != nil {
		b.page.Close()
		b.page = nil
	}
	b.browserCancel()
	b.allocCancel()
	return nil
}

func (b *Browser) checkClosed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}
