package snappdf

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

//go:embed hook.js
var hookJS string

// Runtime binding names shared with hook.js.
const (
	bindingClick = "__snappdfClick"
	bindingTree  = "__snappdfTree"
)

// noticeTTL is how long a failure notice stays on screen.
const noticeTTL = 6 * time.Second

// LivePage is a browser tab whose document is observed for the trigger
// control. It implements [Tree], [Capturer] and [Notifier].
type LivePage struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	url       string
	log       zerolog.Logger

	changes chan struct{}
	clicks  chan ControlID

	closeOnce sync.Once
}

func openLivePage(ctx context.Context, browserCtx context.Context, rawURL string, log zerolog.Logger) (*LivePage, error) {
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	p := &LivePage{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		url:       rawURL,
		log:       log,
		changes:   make(chan struct{}, 1),
		clicks:    make(chan ControlID, 16),
	}

	// Allocate the tab on its own context; a target created under a
	// derived context would die with it.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	var installed bool
	err := p.run(ctx,
		runtime.AddBinding(bindingClick),
		runtime.AddBinding(bindingTree),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hookJS).Do(ctx)
			return err
		}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// The document may have been created before the script was
		// registered; hook.js is idempotent.
		chromedp.Evaluate(hookJS+";true", &installed),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening %s: %w", rawURL, err)
	}

	log.Info().Str("url", rawURL).Msg("page opened")
	return p, nil
}

// onEvent runs on the CDP event goroutine and must not block.
func (p *LivePage) onEvent(ev any) {
	e, ok := ev.(*runtime.EventBindingCalled)
	if !ok {
		return
	}
	switch e.Name {
	case bindingTree:
		select {
		case p.changes <- struct{}{}:
		default:
			// a change is already pending
		}
	case bindingClick:
		select {
		case p.clicks <- ControlID(e.Payload):
		default:
			p.log.Warn().Str("control", e.Payload).Msg("click dropped, queue full")
		}
	}
}

// URL returns the address the page was opened at.
func (p *LivePage) URL() string {
	return p.url
}

// Changes implements [Tree].
func (p *LivePage) Changes() <-chan struct{} {
	return p.changes
}

// Clicks implements [Tree].
func (p *LivePage) Clicks() <-chan ControlID {
	return p.clicks
}

// Find implements [Tree].
func (p *LivePage) Find(ctx context.Context, id string) (Control, error) {
	var key string
	if err := p.eval(ctx, &key, "window.__snappdf ? window.__snappdf.identify(%s) : ''", id); err != nil {
		return nil, fmt.Errorf("find #%s: %w", id, err)
	}
	if key == "" {
		return nil, nil
	}
	return &liveControl{page: p, elementID: id, key: ControlID(key)}, nil
}

// Hook implements [Tree].
func (p *LivePage) Hook(ctx context.Context, c Control) error {
	lc, ok := c.(*liveControl)
	if !ok || lc.page != p {
		return fmt.Errorf("hook: control %q does not belong to this page", c.ID())
	}
	var hooked bool
	if err := p.eval(ctx, &hooked, "window.__snappdf.hook(%s, %s)", lc.elementID, string(lc.key)); err != nil {
		return fmt.Errorf("hook %s: %w", lc.key, err)
	}
	if !hooked {
		return fmt.Errorf("hook %s: control left the document", lc.key)
	}
	return nil
}

// Notify shows msg as a transient, non-blocking notice in the page.
func (p *LivePage) Notify(ctx context.Context, msg string) error {
	var shown bool
	return p.eval(ctx, &shown, "window.__snappdf.notify(%s, %s)", msg, noticeTTL.Milliseconds())
}

// Capture implements [Capturer]. It renders the full document at the
// requested device scale factor. The viewport emulation is always cleared
// afterwards, even when the screenshot fails or ctx ends.
func (p *LivePage) Capture(ctx context.Context, opts CaptureOptions) (*Capture, error) {
	var viewport struct {
		Width  int64 `json:"w"`
		Height int64 `json:"h"`
	}
	if err := p.run(ctx, chromedp.Evaluate(`({w: window.innerWidth, h: window.innerHeight})`, &viewport)); err != nil {
		return nil, fmt.Errorf("reading viewport: %w", err)
	}

	// Cleared on every path, including an override whose reply was lost
	// to cancellation.
	defer p.clearEmulation(context.WithoutCancel(ctx))
	if err := p.run(ctx, emulation.SetDeviceMetricsOverride(viewport.Width, viewport.Height, opts.scale(), false)); err != nil {
		return nil, fmt.Errorf("emulating device scale: %w", err)
	}

	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return decodeCapture(buf)
}

func (p *LivePage) clearEmulation(ctx context.Context) {
	if err := p.run(ctx, emulation.ClearDeviceMetricsOverride()); err != nil {
		p.log.Warn().Err(err).Msg("clearing device metrics override failed")
	}
}

// Close closes the tab.
func (p *LivePage) Close() {
	p.closeOnce.Do(p.tabCancel)
}

// eval evaluates a JS expression whose %s verbs are filled with the
// JSON encoding of args.
func (p *LivePage) eval(ctx context.Context, res any, format string, args ...any) error {
	quoted := make([]any, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		quoted[i] = string(b)
	}
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf(format, quoted...), res))
}

// run executes actions on the tab, bounded by both the tab's lifetime
// and ctx.
func (p *LivePage) run(ctx context.Context, actions ...chromedp.Action) error {
	execCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-execCtx.Done():
		}
	}()
	return chromedp.Run(execCtx, actions...)
}

// liveControl is a control element in a [LivePage].
type liveControl struct {
	page      *LivePage
	elementID string
	key       ControlID
}

func (c *liveControl) ID() ControlID {
	return c.key
}

func (c *liveControl) State(ctx context.Context) (ControlState, error) {
	var st struct {
		Present  bool   `json:"present"`
		Label    string `json:"label"`
		Disabled bool   `json:"disabled"`
	}
	if err := c.page.eval(ctx, &st, "window.__snappdf.state(%s, %s)", c.elementID, string(c.key)); err != nil {
		return ControlState{}, err
	}
	if !st.Present {
		return ControlState{}, fmt.Errorf("control %s left the document", c.key)
	}
	return ControlState{Label: st.Label, Disabled: st.Disabled}, nil
}

func (c *liveControl) Apply(ctx context.Context, st ControlState) error {
	var applied bool
	if err := c.page.eval(ctx, &applied, "window.__snappdf.apply(%s, %s, %s, %s)",
		c.elementID, string(c.key), st.Label, st.Disabled); err != nil {
		return err
	}
	if !applied {
		c.page.log.Debug().Str("control", string(c.key)).Msg("control gone, state not applied")
	}
	return nil
}
