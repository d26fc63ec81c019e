package snappdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
)

// fakeControl is an in-memory trigger control.
type fakeControl struct {
	id ControlID

	mu      sync.Mutex
	state   ControlState
	applied []ControlState
}

func newFakeControl(id ControlID, label string) *fakeControl {
	return &fakeControl{id: id, state: ControlState{Label: label}}
}

func (c *fakeControl) ID() ControlID { return c.id }

func (c *fakeControl) State(ctx context.Context) (ControlState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, nil
}

func (c *fakeControl) Apply(ctx context.Context, st ControlState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = st
	c.applied = append(c.applied, st)
	return nil
}

func (c *fakeControl) current() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeControl) history() []ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ControlState(nil), c.applied...)
}

// fakeTree is an in-memory document keyed by identifier attribute.
type fakeTree struct {
	mu       sync.Mutex
	controls map[string]*fakeControl
	hooks    map[ControlID]int
	findErr  error

	changes chan struct{}
	clicks  chan ControlID
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		controls: make(map[string]*fakeControl),
		hooks:    make(map[ControlID]int),
		changes:  make(chan struct{}, 1),
		clicks:   make(chan ControlID, 16),
	}
}

// insert replaces the control with identifier id and reports a change.
func (t *fakeTree) insert(id string, c *fakeControl) {
	t.mu.Lock()
	t.controls[id] = c
	t.mu.Unlock()
	t.notify()
}

// remove deletes the control with identifier id and reports a change.
func (t *fakeTree) remove(id string) {
	t.mu.Lock()
	delete(t.controls, id)
	t.mu.Unlock()
	t.notify()
}

func (t *fakeTree) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}

// click reports a click on c if it is hooked, like a DOM listener would.
func (t *fakeTree) click(c *fakeControl) {
	t.mu.Lock()
	hooked := t.hooks[c.id] > 0
	t.mu.Unlock()
	if hooked {
		t.clicks <- c.id
	}
}

func (t *fakeTree) hookCount(id ControlID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hooks[id]
}

func (t *fakeTree) Find(ctx context.Context, id string) (Control, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.findErr != nil {
		return nil, t.findErr
	}
	c, ok := t.controls[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (t *fakeTree) Hook(ctx context.Context, c Control) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks[c.ID()]++
	return nil
}

func (t *fakeTree) Changes() <-chan struct{} { return t.changes }

func (t *fakeTree) Clicks() <-chan ControlID { return t.clicks }

// fakeCapturer returns a solid image of a fixed size.
type fakeCapturer struct {
	width, height int
	err           error

	mu    sync.Mutex
	calls int
	opts  []CaptureOptions
}

func (c *fakeCapturer) Capture(ctx context.Context, opts CaptureOptions) (*Capture, error) {
	c.mu.Lock()
	c.calls++
	c.opts = append(c.opts, opts)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y), G: 0x80, B: uint8(x), A: 0xff})
		}
	}
	return &Capture{Image: img}, nil
}

func (c *fakeCapturer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingNotifier keeps every notice.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// failingDeliverer always fails.
type failingDeliverer struct{}

func (failingDeliverer) Deliver(ctx context.Context, name string, res *Result) (string, error) {
	return "", errors.New("disk full")
}

// failingAssembler always fails.
type failingAssembler struct{}

func (failingAssembler) Assemble(ctx context.Context, jpeg []byte, l Layout) (*Result, error) {
	return nil, fmt.Errorf("font table corrupt")
}

// nilResultAssembler reports success without producing a document.
type nilResultAssembler struct{}

func (nilResultAssembler) Assemble(ctx context.Context, jpeg []byte, l Layout) (*Result, error) {
	return nil, nil
}
