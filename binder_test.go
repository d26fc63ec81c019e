package snappdf

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func noopHandler(ctx context.Context, c Control) {}

func TestBinder_AttachAbsentControl(t *testing.T) {
	tree := newFakeTree()
	b := NewBinder(tree, "", noopHandler, zerolog.Nop())

	rec, err := b.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if rec != nil {
		t.Errorf("Attach on empty tree = %+v, want nil", rec)
	}
	if b.Current() != nil {
		t.Error("Current() should be nil without a control")
	}
}

func TestBinder_AttachIsIdempotent(t *testing.T) {
	tree := newFakeTree()
	btn := newFakeControl("btn-1", "Print")
	tree.insert(DefaultControlID, btn)
	b := NewBinder(tree, DefaultControlID, noopHandler, zerolog.Nop())

	var first *BindingRecord
	for i := 0; i < 5; i++ {
		rec, err := b.Attach(context.Background())
		if err != nil {
			t.Fatalf("Attach #%d: %v", i, err)
		}
		if rec == nil || rec.Control.ID() != btn.ID() {
			t.Fatalf("Attach #%d = %+v, want binding for %s", i, rec, btn.ID())
		}
		if first == nil {
			first = rec
		} else if rec != first {
			t.Errorf("Attach #%d created a new binding record", i)
		}
	}
	if n := tree.hookCount(btn.ID()); n != 1 {
		t.Errorf("control hooked %d times, want 1", n)
	}
}

func TestBinder_RebindsReplacedControl(t *testing.T) {
	tree := newFakeTree()
	old := newFakeControl("btn-1", "Print")
	tree.insert(DefaultControlID, old)
	b := NewBinder(tree, DefaultControlID, noopHandler, zerolog.Nop())
	if _, err := b.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	tree.remove(DefaultControlID)
	if rec, _ := b.Attach(context.Background()); rec != nil {
		t.Errorf("Attach after removal = %+v, want nil", rec)
	}

	fresh := newFakeControl("btn-2", "Print")
	tree.insert(DefaultControlID, fresh)
	rec, err := b.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if rec == nil || rec.Control.ID() != fresh.ID() {
		t.Fatalf("Attach = %+v, want binding for new control", rec)
	}
	if n := tree.hookCount(fresh.ID()); n != 1 {
		t.Errorf("new control hooked %d times, want 1", n)
	}
	if n := tree.hookCount(old.ID()); n != 1 {
		t.Errorf("old control hooked %d times, want 1", n)
	}
}

func TestBinder_FindError(t *testing.T) {
	tree := newFakeTree()
	tree.findErr = errors.New("target closed")
	b := NewBinder(tree, DefaultControlID, noopHandler, zerolog.Nop())
	if _, err := b.Attach(context.Background()); err == nil {
		t.Error("Attach should surface lookup errors")
	}
}

func TestTryBind_PrunesStaleIdentities(t *testing.T) {
	tree := newFakeTree()
	bound := map[ControlID]*BindingRecord{
		"gone-1": {},
		"gone-2": {},
	}
	tree.insert(DefaultControlID, newFakeControl("live", "Print"))

	rec, err := tryBind(context.Background(), tree, DefaultControlID, bound)
	if err != nil {
		t.Fatalf("tryBind: %v", err)
	}
	if rec == nil {
		t.Fatal("tryBind returned no record")
	}
	if len(bound) != 1 || bound["live"] != rec {
		t.Errorf("bound = %v, want only the live control", bound)
	}
}

func TestBinder_RunDispatchesClicksAcrossRerenders(t *testing.T) {
	tree := newFakeTree()
	first := newFakeControl("btn-1", "Print")
	tree.insert(DefaultControlID, first)

	got := make(chan ControlID, 4)
	b := NewBinder(tree, DefaultControlID, func(ctx context.Context, c Control) {
		got <- c.ID()
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	waitFor(t, "first bind", func() bool { return tree.hookCount(first.ID()) == 1 })
	tree.click(first)
	expectClick(t, got, first.ID())

	// The page re-renders: old node removed, new one inserted.
	tree.remove(DefaultControlID)
	second := newFakeControl("btn-2", "Print")
	tree.insert(DefaultControlID, second)

	waitFor(t, "rebind", func() bool { return tree.hookCount(second.ID()) == 1 })
	tree.click(second)
	expectClick(t, got, second.ID())

	// A click from the detached node is ignored.
	tree.clicks <- first.ID()
	select {
	case id := <-got:
		t.Errorf("handler ran for stale control %s", id)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if n := tree.hookCount(second.ID()); n != 1 {
		t.Errorf("new control hooked %d times, want 1", n)
	}
}

func TestBinder_RunStopsWhenTreeCloses(t *testing.T) {
	tree := newFakeTree()
	b := NewBinder(tree, DefaultControlID, noopHandler, zerolog.Nop())
	close(tree.changes)
	if err := b.Run(context.Background()); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestBinder_RunLogsRebindErrorOnClick(t *testing.T) {
	tree := newFakeTree()
	tree.insert(DefaultControlID, newFakeControl("btn-1", "Print"))
	var logs bytes.Buffer
	b := NewBinder(tree, DefaultControlID, func(ctx context.Context, c Control) {
		t.Errorf("handler ran for %s", c.ID())
	}, zerolog.New(&logs))
	if _, err := b.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	tree.mu.Lock()
	tree.findErr = errors.New("target closed")
	tree.mu.Unlock()
	tree.clicks <- "btn-2"
	waitFor(t, "click consumed", func() bool { return len(tree.clicks) == 0 })
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if !bytes.Contains(logs.Bytes(), []byte(`"level":"warn"`)) || !bytes.Contains(logs.Bytes(), []byte("target closed")) {
		t.Errorf("rebind error not logged: %s", logs.String())
	}
}

func expectClick(t *testing.T, got <-chan ControlID, want ControlID) {
	t.Helper()
	select {
	case id := <-got:
		if id != want {
			t.Errorf("handler ran for %s, want %s", id, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler not called for %s", want)
	}
}
