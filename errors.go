package snappdf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Browser].
	ErrClosed = errors.New("snappdf: browser is closed")

	// ErrBusy is returned when an export is started while another session
	// on the same [Exporter] is still running.
	ErrBusy = errors.New("snappdf: export already in progress")

	// ErrUnknownCapability is returned by [Registry.Ensure] for an id with
	// no registered loader.
	ErrUnknownCapability = errors.New("snappdf: unknown capability")

	// ErrInvalidImage is returned when a capture has a non-positive size.
	ErrInvalidImage = errors.New("snappdf: invalid image dimensions")

	// ErrInvalidGeometry is returned for a page geometry with a
	// non-positive width or height.
	ErrInvalidGeometry = errors.New("snappdf: invalid page geometry")

	// ErrNoPage is returned when a [Browser] is asked to capture before a
	// page has been opened.
	ErrNoPage = errors.New("snappdf: no page open")
)

// Kind classifies pipeline failures for the diagnostic log.
type Kind string

const (
	// KindLoad marks a capability that could not be fetched or initialized.
	KindLoad Kind = "load"
	// KindCapture marks a failed or aborted surface capture.
	KindCapture Kind = "capture"
	// KindAssembly marks a failure while building or delivering the document.
	KindAssembly Kind = "assembly"
)

// Error is a pipeline failure tagged with its [Kind].
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("snappdf: %s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("snappdf: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err carries an [*Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not an [*Error].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
