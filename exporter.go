package snappdf

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/porticus-lab/go-snap-pdf/internal/metrics"
)

// Exporter runs export sessions: it captures the surface, paginates the
// capture and delivers the document, keeping the trigger control's label
// and disabled flag consistent throughout.
//
// At most one session runs at a time; a concurrent call fails with [ErrBusy].
type Exporter struct {
	reg  *Registry
	cfg  exportConfig
	busy atomic.Bool
}

// NewExporter returns an Exporter that takes its capabilities from reg.
func NewExporter(reg *Registry, opts ...ExportOption) *Exporter {
	cfg := defaultExportConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.deliverer == nil {
		cfg.deliverer = DirDeliverer{Dir: "."}
	}
	if cfg.notifier == nil {
		cfg.notifier = LogNotifier{Log: cfg.log}
	}
	return &Exporter{reg: reg, cfg: cfg}
}

// Handle is a [Handler] that runs one session and discards its outcome,
// which has already been logged and shown to the user.
func (e *Exporter) Handle(ctx context.Context, c Control) {
	_, _ = e.Export(ctx, c)
}

// Export runs one session for control c. c may be nil for exports that
// are not triggered from a control.
//
// Capabilities are acquired before c is touched, so a load failure leaves
// the control as it was. Once the control has been changed its original
// state is restored whatever the outcome.
func (e *Exporter) Export(ctx context.Context, c Control) (*Session, error) {
	if !e.busy.CompareAndSwap(false, true) {
		metrics.ObserveSession("busy", "", 0)
		e.cfg.log.Debug().Msg("export already running, click ignored")
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	s := newSession(ControlState{})
	log := e.cfg.log.With().Str("session", s.ID).Logger()
	log.Info().Msg("export started")

	capturer, assembler, err := e.acquire(ctx)
	if err != nil {
		return s, e.fail(ctx, s, log, err)
	}

	if c != nil {
		st, err := c.State(ctx)
		if err != nil {
			return s, e.fail(ctx, s, log, newError(KindCapture, "read control state", err))
		}
		s.Original = st
		s.state = SessionState{phase: PhaseIdle, label: st.Label, disabled: st.Disabled}
		defer e.restore(ctx, s, c, log)
	}

	e.enter(ctx, s, c, PhaseCapturing, log)
	capture, err := e.capture(ctx, capturer)
	if err != nil {
		return s, e.fail(ctx, s, log, err)
	}

	e.enter(ctx, s, c, PhaseAssembling, log)
	res, err := e.assemble(ctx, assembler, capture)
	if err != nil {
		return s, e.fail(ctx, s, log, err)
	}

	path, err := e.cfg.deliverer.Deliver(ctx, e.cfg.fileName, res)
	if err != nil {
		return s, e.fail(ctx, s, log, newError(KindAssembly, "deliver", err))
	}

	s.Result = res
	s.Path = path
	s.enter(PhaseDone, e.cfg.progressLabel)
	metrics.ObserveSession("done", "", s.Duration())
	metrics.AddPages(res.Pages())
	log.Info().
		Str("path", path).
		Int("pages", res.Pages()).
		Int("bytes", res.Len()).
		Dur("took", s.Duration()).
		Msg("export done")
	return s, nil
}

func (e *Exporter) acquire(ctx context.Context) (Capturer, Assembler, error) {
	v, err := e.reg.Ensure(ctx, CaptureCapability)
	if err != nil {
		return nil, nil, asLoadError(CaptureCapability, err)
	}
	capturer, ok := v.(Capturer)
	if !ok {
		return nil, nil, newError(KindLoad, string(CaptureCapability), fmt.Errorf("unexpected capability type %T", v))
	}

	v, err = e.reg.Ensure(ctx, AssemblyCapability)
	if err != nil {
		return nil, nil, asLoadError(AssemblyCapability, err)
	}
	assembler, ok := v.(Assembler)
	if !ok {
		return nil, nil, newError(KindLoad, string(AssemblyCapability), fmt.Errorf("unexpected capability type %T", v))
	}
	return capturer, assembler, nil
}

func asLoadError(id CapabilityID, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return newError(KindLoad, string(id), err)
}

func (e *Exporter) capture(ctx context.Context, capturer Capturer) (*Capture, error) {
	if e.cfg.captureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.captureTimeout)
		defer cancel()
	}
	capture, err := capturer.Capture(ctx, CaptureOptions{Scale: e.cfg.scale})
	if err != nil {
		return nil, newError(KindCapture, "capture surface", err)
	}
	if capture == nil || capture.Image == nil {
		return nil, newError(KindCapture, "capture surface", ErrInvalidImage)
	}
	if capture.Width() <= 0 || capture.Height() <= 0 {
		return nil, newError(KindCapture, "capture surface",
			fmt.Errorf("%w: %dx%d px", ErrInvalidImage, capture.Width(), capture.Height()))
	}
	return capture, nil
}

func (e *Exporter) assemble(ctx context.Context, assembler Assembler, capture *Capture) (*Result, error) {
	data, err := encodeJPEG(capture, e.cfg.quality)
	if err != nil {
		return nil, newError(KindAssembly, "encode image", err)
	}
	layout, err := Paginate(capture.Width(), capture.Height(), e.cfg.geometry)
	if err != nil {
		return nil, newError(KindAssembly, "paginate", err)
	}
	res, err := assembler.Assemble(ctx, data, layout)
	if err != nil {
		return nil, newError(KindAssembly, "assemble document", err)
	}
	if res == nil {
		return nil, newError(KindAssembly, "assemble document", errors.New("assembler returned no document"))
	}
	if res.pages == 0 {
		res.pages = layout.Pages()
	}
	return res, nil
}

// enter moves s to phase p and mirrors the new state onto c.
func (e *Exporter) enter(ctx context.Context, s *Session, c Control, p Phase, log zerolog.Logger) {
	prev := s.State().Control()
	s.enter(p, e.cfg.progressLabel)
	log.Debug().Stringer("phase", p).Msg("session phase")
	if c == nil || s.State().Control() == prev {
		return
	}
	if err := c.Apply(ctx, s.State().Control()); err != nil {
		log.Warn().Err(err).Msg("updating control failed")
	}
}

// restore puts the control back the way the session found it. It runs
// even when ctx has been cancelled.
func (e *Exporter) restore(ctx context.Context, s *Session, c Control, log zerolog.Logger) {
	s.enter(PhaseIdle, e.cfg.progressLabel)
	if err := c.Apply(context.WithoutCancel(ctx), s.Original); err != nil {
		log.Error().Err(err).Msg("restoring control failed")
	}
}

// fail records err on s, logs it with its kind and shows the generic
// failure notice.
func (e *Exporter) fail(ctx context.Context, s *Session, log zerolog.Logger, err error) error {
	s.Err = err
	s.enter(PhaseFailed, e.cfg.progressLabel)
	kind := KindOf(err)
	metrics.ObserveSession("failed", string(kind), s.Duration())
	log.Error().Err(err).Str("kind", string(kind)).Msg("export failed")

	if nerr := e.cfg.notifier.Notify(context.WithoutCancel(ctx), e.cfg.failureMessage); nerr != nil {
		log.Warn().Err(nerr).Msg("showing failure notice failed")
	}
	return err
}
