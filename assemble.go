package snappdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Assembler builds a paginated document from one JPEG image.
type Assembler interface {
	Assemble(ctx context.Context, jpeg []byte, l Layout) (*Result, error)
}

// AssemblerLoader is the [Loader] of the document assembly capability.
// Loading initializes the pdfcpu configuration used to validate output and
// runs one probe document through the whole assembler.
type AssemblerLoader struct {
	creator string
}

// NewAssemblerLoader returns a loader whose documents carry creator in
// their metadata.
func NewAssemblerLoader(creator string) *AssemblerLoader {
	if creator == "" {
		creator = "snappdf"
	}
	return &AssemblerLoader{creator: creator}
}

// Load implements [Loader].
func (l *AssemblerLoader) Load(ctx context.Context) (any, error) {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	a := &pdfAssembler{creator: l.creator, conf: conf}
	if err := a.selfCheck(ctx); err != nil {
		return nil, fmt.Errorf("assembler self check: %w", err)
	}
	return a, nil
}

// pdfAssembler writes documents with fpdf and verifies them with pdfcpu.
type pdfAssembler struct {
	creator string
	conf    *model.Configuration
}

const pageImageName = "surface"

// Assemble implements [Assembler]. The returned document has exactly
// l.Pages() pages or an error is returned.
func (a *pdfAssembler) Assemble(ctx context.Context, jpeg []byte, l Layout) (*Result, error) {
	if err := l.Geometry.Validate(); err != nil {
		return nil, err
	}
	if len(l.Placements) == 0 {
		return nil, fmt.Errorf("layout has no pages")
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: l.Geometry.Width, Ht: l.Geometry.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(a.creator, true)

	opts := fpdf.ImageOptions{ImageType: "JPEG", AllowNegativePosition: true}
	pdf.RegisterImageOptionsReader(pageImageName, opts, bytes.NewReader(jpeg))
	for _, p := range l.Placements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		pdf.ImageOptions(pageImageName, p.X, p.Y, p.Width, p.Height, false, opts, 0, "")
	}
	if pdf.Err() {
		return nil, fmt.Errorf("building document: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}

	res := &Result{data: buf.Bytes(), geometry: l.Geometry}
	if err := a.verify(res, l.Pages()); err != nil {
		return nil, err
	}
	res.pages = l.Pages()
	return res, nil
}

// verify validates the document and checks its page count.
func (a *pdfAssembler) verify(res *Result, want int) error {
	if err := api.Validate(res.Reader(), a.conf); err != nil {
		return fmt.Errorf("validating document: %w", err)
	}
	n, err := api.PageCount(res.Reader(), a.conf)
	if err != nil {
		return fmt.Errorf("counting pages: %w", err)
	}
	if n != want {
		return fmt.Errorf("document has %d pages, layout wants %d", n, want)
	}
	return nil
}

func (a *pdfAssembler) selfCheck(ctx context.Context) error {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 0xff})
	data, err := encodeJPEG(&Capture{Image: img}, DefaultJPEGQuality)
	if err != nil {
		return err
	}
	l, err := Paginate(1, 1, A4Portrait)
	if err != nil {
		return err
	}
	_, err = a.Assemble(ctx, data, l)
	return err
}
