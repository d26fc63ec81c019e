package snappdf

import (
	"bytes"
	"fmt"
	"io"
)

// Result is an assembled storyboard document. Its content never changes
// after assembly, so a Result may be shared between goroutines.
type Result struct {
	data     []byte
	pages    int
	geometry Geometry
}

// Bytes returns the PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Pages returns the number of pages in the document.
func (r *Result) Pages() int {
	return r.pages
}

// Geometry returns the page size the document was laid out on.
func (r *Result) Geometry() Geometry {
	return r.geometry
}

// Reader returns a fresh reader positioned at the start of the PDF.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// String summarizes the document for logs and terminal output.
func (r *Result) String() string {
	return fmt.Sprintf("%d pages of %gx%g mm, %d bytes", r.pages, r.geometry.Width, r.geometry.Height, len(r.data))
}
