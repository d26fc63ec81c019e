package snappdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Deliverer hands a finished document to the user.
type Deliverer interface {
	Deliver(ctx context.Context, name string, res *Result) (string, error)
}

// DirDeliverer writes documents into a download directory. Files appear
// atomically: a reader never sees a partly written document.
type DirDeliverer struct {
	Dir  string
	Perm os.FileMode
}

// Deliver writes res to Dir/name and returns the final path.
func (d DirDeliverer) Deliver(ctx context.Context, name string, res *Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	perm := d.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".snappdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := res.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return "", fmt.Errorf("setting file mode: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("moving document into place: %w", err)
	}
	return path, nil
}

// Notifier shows a short, non-blocking notice to the user.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// LogNotifier writes notices to a logger. It is used when there is no
// page to show them in.
type LogNotifier struct {
	Log zerolog.Logger
}

// Notify implements [Notifier].
func (n LogNotifier) Notify(_ context.Context, msg string) error {
	n.Log.Warn().Msg(msg)
	return nil
}
