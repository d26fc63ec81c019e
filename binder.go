package snappdf

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/porticus-lab/go-snap-pdf/internal/metrics"
)

// DefaultControlID is the identifier attribute of the trigger control.
const DefaultControlID = "btn-print"

// ControlID is the identity of one control instance. A control that is
// removed and re-inserted with the same identifier attribute gets a new
// ControlID.
type ControlID string

// ControlState is the user-visible state of a control.
type ControlState struct {
	Label    string
	Disabled bool
}

// Control is a live trigger control.
type Control interface {
	ID() ControlID
	State(ctx context.Context) (ControlState, error)
	Apply(ctx context.Context, st ControlState) error
}

// Tree is a document tree that can be searched for controls and that
// reports structural changes and clicks on hooked controls.
type Tree interface {
	// Find returns the control carrying the identifier attribute id, or
	// nil when there is none.
	Find(ctx context.Context, id string) (Control, error)
	// Hook attaches a click listener to c. Clicks are reported on Clicks.
	Hook(ctx context.Context, c Control) error
	// Changes delivers a value whenever nodes are added or removed.
	Changes() <-chan struct{}
	// Clicks delivers the identity of every clicked hooked control.
	Clicks() <-chan ControlID
}

// BindingRecord associates the live control with the export handler.
type BindingRecord struct {
	Control Control
	BoundAt time.Time
}

// Handler is invoked for every click on the bound control.
type Handler func(ctx context.Context, c Control)

// Binder keeps the export handler attached to the trigger control across
// re-renders of the tree.
type Binder struct {
	tree    Tree
	id      string
	handler Handler
	log     zerolog.Logger

	mu      sync.Mutex
	bound   map[ControlID]*BindingRecord
	current *BindingRecord
}

// NewBinder returns a Binder that attaches handler to the control with
// identifier id in tree. An empty id means [DefaultControlID].
func NewBinder(tree Tree, id string, handler Handler, log zerolog.Logger) *Binder {
	if id == "" {
		id = DefaultControlID
	}
	return &Binder{
		tree:    tree,
		id:      id,
		handler: handler,
		log:     log,
		bound:   make(map[ControlID]*BindingRecord),
	}
}

// Attach binds the handler to the control currently in the tree. It
// returns nil when the control is absent. Calling it again for an
// already bound control instance does nothing.
func (b *Binder) Attach(ctx context.Context) (*BindingRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := tryBind(ctx, b.tree, b.id, b.bound)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		b.current = nil
		return nil, nil
	}
	if b.current == nil || b.current.Control.ID() != rec.Control.ID() {
		b.log.Info().Str("control", string(rec.Control.ID())).Msg("trigger bound")
		metrics.IncBinding()
	}
	b.current = rec
	return rec, nil
}

// Current returns the active binding, or nil.
func (b *Binder) Current() *BindingRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// tryBind looks up the control and hooks it unless this instance is
// already in bound. Identities no longer in the tree are dropped from bound.
func tryBind(ctx context.Context, tree Tree, id string, bound map[ControlID]*BindingRecord) (*BindingRecord, error) {
	c, err := tree.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		clear(bound)
		return nil, nil
	}

	key := c.ID()
	for k := range bound {
		if k != key {
			delete(bound, k)
		}
	}
	if rec, ok := bound[key]; ok {
		return rec, nil
	}

	if err := tree.Hook(ctx, c); err != nil {
		return nil, err
	}
	rec := &BindingRecord{Control: c, BoundAt: time.Now()}
	bound[key] = rec
	return rec, nil
}

// Run binds once, then re-binds on every tree change and dispatches
// clicks on the bound control to the handler until ctx is done or the
// tree stops reporting events.
func (b *Binder) Run(ctx context.Context) error {
	if _, err := b.Attach(ctx); err != nil {
		b.log.Warn().Err(err).Msg("initial bind failed")
	}

	changes := b.tree.Changes()
	clicks := b.tree.Clicks()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := b.Attach(ctx); err != nil {
				b.log.Warn().Err(err).Msg("rebind failed")
			}

		case id, ok := <-clicks:
			if !ok {
				return nil
			}
			rec := b.Current()
			if rec == nil || rec.Control.ID() != id {
				// The change that produced this control may still be queued.
				var err error
				if rec, err = b.Attach(ctx); err != nil {
					b.log.Warn().Err(err).Msg("rebind failed")
				}
			}
			if rec == nil || rec.Control.ID() != id {
				b.log.Debug().Str("control", string(id)).Msg("click from unbound control ignored")
				continue
			}
			go b.handler(ctx, rec.Control)
		}
	}
}
