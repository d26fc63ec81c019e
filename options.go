package snappdf

import (
	"time"

	"github.com/rs/zerolog"
)

// browserConfig holds internal configuration for a [Browser].
type browserConfig struct {
	chromePath   string
	headless     bool
	noSandbox    bool
	autoDownload bool
	revision     int
	downloadDir  string
	windowWidth  int
	windowHeight int
	log          zerolog.Logger
}

func defaultBrowserConfig() browserConfig {
	return browserConfig{
		headless:     true,
		windowWidth:  1280,
		windowHeight: 900,
		log:          zerolog.Nop(),
	}
}

// Option configures a [BrowserLoader].
type Option func(*browserConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the loader searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *browserConfig) {
		c.chromePath = path
	}
}

// WithHeadless selects a headless (true) or visible (false) browser.
// Defaults to headless.
func WithHeadless(headless bool) Option {
	return func(c *browserConfig) {
		c.headless = headless
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *browserConfig) {
		c.noSandbox = true
	}
}

// WithAutoDownload allows the loader to fetch a pinned Chromium revision
// when no local executable is found. The binary is cached by the rod
// launcher in its default browser directory unless [WithDownloadDir] is set.
func WithAutoDownload() Option {
	return func(c *browserConfig) {
		c.autoDownload = true
	}
}

// WithRevision pins the Chromium revision fetched by [WithAutoDownload].
// Zero keeps the launcher's default revision.
func WithRevision(rev int) Option {
	return func(c *browserConfig) {
		c.revision = rev
	}
}

// WithDownloadDir sets where a downloaded Chromium is stored.
func WithDownloadDir(dir string) Option {
	return func(c *browserConfig) {
		c.downloadDir = dir
	}
}

// WithWindowSize sets the initial browser window size in CSS pixels.
func WithWindowSize(width, height int) Option {
	return func(c *browserConfig) {
		if width > 0 && height > 0 {
			c.windowWidth, c.windowHeight = width, height
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *browserConfig) {
		c.log = log
	}
}

// DefaultFileName is the name of the delivered document.
const DefaultFileName = "storyboard.pdf"

// Default control labels and notices.
const (
	DefaultProgressLabel  = "Generating..."
	DefaultFailureMessage = "Failed to create PDF. Open console for details."
)

// exportConfig holds internal configuration for an [Exporter].
type exportConfig struct {
	geometry       Geometry
	scale          float64
	quality        int
	fileName       string
	progressLabel  string
	failureMessage string
	captureTimeout time.Duration
	deliverer      Deliverer
	notifier       Notifier
	log            zerolog.Logger
}

func defaultExportConfig() exportConfig {
	return exportConfig{
		geometry:       A4Portrait,
		scale:          DefaultCaptureScale,
		quality:        DefaultJPEGQuality,
		fileName:       DefaultFileName,
		progressLabel:  DefaultProgressLabel,
		failureMessage: DefaultFailureMessage,
		log:            zerolog.Nop(),
	}
}

// ExportOption configures an [Exporter].
type ExportOption func(*exportConfig)

// WithGeometry sets the output page size. Defaults to [A4Portrait].
func WithGeometry(g Geometry) ExportOption {
	return func(c *exportConfig) {
		c.geometry = g
	}
}

// WithScale sets the capture oversampling factor. Defaults to 2.
func WithScale(scale float64) ExportOption {
	return func(c *exportConfig) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithJPEGQuality sets the JPEG quality (1-100) of page images.
func WithJPEGQuality(q int) ExportOption {
	return func(c *exportConfig) {
		if q > 0 && q <= 100 {
			c.quality = q
		}
	}
}

// WithFileName sets the delivered file name. Defaults to storyboard.pdf.
func WithFileName(name string) ExportOption {
	return func(c *exportConfig) {
		if name != "" {
			c.fileName = name
		}
	}
}

// WithProgressLabel sets the control label shown while a session runs.
func WithProgressLabel(label string) ExportOption {
	return func(c *exportConfig) {
		c.progressLabel = label
	}
}

// WithFailureMessage sets the single user-facing failure notice.
func WithFailureMessage(msg string) ExportOption {
	return func(c *exportConfig) {
		if msg != "" {
			c.failureMessage = msg
		}
	}
}

// WithCaptureTimeout bounds the capture step. Zero, the default, means
// no timeout.
func WithCaptureTimeout(d time.Duration) ExportOption {
	return func(c *exportConfig) {
		c.captureTimeout = d
	}
}

// WithDeliverer sets where finished documents go.
func WithDeliverer(d Deliverer) ExportOption {
	return func(c *exportConfig) {
		c.deliverer = d
	}
}

// WithNotifier sets the user-facing notice channel.
func WithNotifier(n Notifier) ExportOption {
	return func(c *exportConfig) {
		c.notifier = n
	}
}

// WithExportLogger sets the diagnostic logger of an [Exporter].
func WithExportLogger(log zerolog.Logger) ExportOption {
	return func(c *exportConfig) {
		c.log = log
	}
}
