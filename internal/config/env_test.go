package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Export.FileName != "storyboard.pdf" || cfg.Export.ControlID != "btn-print" || cfg.Export.PageSize != "a4" {
		t.Errorf("export defaults = %+v", cfg.Export)
	}
	if cfg.Export.Scale != 2 || cfg.Export.JPEGQuality != 95 || cfg.Export.CaptureTimeout != 0 {
		t.Errorf("capture defaults = %+v", cfg.Export)
	}
	if cfg.Browser.AutoDownload || cfg.Browser.WindowWidth != 1280 {
		t.Errorf("browser defaults = %+v", cfg.Browser)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SNAPPDF_SCALE", "1.5")
	t.Setenv("SNAPPDF_JPEG_QUALITY", "80")
	t.Setenv("SNAPPDF_CAPTURE_TIMEOUT", "45s")
	t.Setenv("SNAPPDF_AUTO_DOWNLOAD", "yes")
	t.Setenv("SNAPPDF_CHROME_REVISION", "1321438")
	t.Setenv("SNAPPDF_WINDOW_HEIGHT", "not-a-number")

	cfg := FromEnv()
	if cfg.Export.Scale != 1.5 || cfg.Export.JPEGQuality != 80 {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Export.CaptureTimeout != 45*time.Second {
		t.Errorf("capture timeout = %v", cfg.Export.CaptureTimeout)
	}
	if !cfg.Browser.AutoDownload || cfg.Browser.Revision != 1321438 {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Browser.WindowHeight != 900 {
		t.Errorf("invalid window height should fall back to 900, got %d", cfg.Browser.WindowHeight)
	}
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SNAPPDF_FILE_NAME=board.pdf\nSNAPPDF_CONTROL_ID=export\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the values loaded from the file are unset afterwards.
	t.Setenv("SNAPPDF_FILE_NAME", "")
	t.Setenv("SNAPPDF_CONTROL_ID", "from-env")
	os.Unsetenv("SNAPPDF_FILE_NAME")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.FileName != "board.pdf" {
		t.Errorf("file name = %q, want board.pdf", cfg.Export.FileName)
	}
	if cfg.Export.ControlID != "from-env" {
		t.Errorf("control id = %q, environment should win", cfg.Export.ControlID)
	}
}

func TestLoad_MissingDotenv(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load with missing file: %v", err)
	}
}
