package snappdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/porticus-lab/go-snap-pdf/internal/metrics"
)

// CapabilityID identifies an optional runtime capability.
type CapabilityID string

// Capabilities used by the export pipeline.
const (
	// CaptureCapability resolves to a [Capturer].
	CaptureCapability CapabilityID = "surface-capture"
	// AssemblyCapability resolves to an [Assembler].
	AssemblyCapability CapabilityID = "document-assembly"
)

// CapabilityState is the lifecycle state of a capability.
type CapabilityState int

const (
	Unavailable CapabilityState = iota
	Loading
	Ready
)

func (s CapabilityState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unavailable"
	}
}

// Loader fetches and initializes one capability.
type Loader interface {
	Load(ctx context.Context) (any, error)
}

// Prober is implemented by loaders that can detect a capability that is
// already usable without fetching anything.
type Prober interface {
	Present() (any, bool)
}

// LoaderFunc adapts a function to the [Loader] interface.
type LoaderFunc func(ctx context.Context) (any, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (any, error) {
	return f(ctx)
}

// Registry owns the process-wide capabilities. Each capability is loaded at
// most once; callers that arrive while a load is in flight wait for it
// instead of starting another. A failed load leaves the capability
// unavailable so that a later call may try again.
//
// A Registry is safe for concurrent use.
type Registry struct {
	log   zerolog.Logger
	group singleflight.Group

	mu      sync.Mutex
	loaders map[CapabilityID]Loader
	values  map[CapabilityID]any
	loading map[CapabilityID]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:     log,
		loaders: make(map[CapabilityID]Loader),
		values:  make(map[CapabilityID]any),
		loading: make(map[CapabilityID]bool),
	}
}

// Register sets the loader for id, replacing any previous one.
func (r *Registry) Register(id CapabilityID, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[id] = l
}

// Provide marks id as ready with the given value.
func (r *Registry) Provide(id CapabilityID, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] = v
}

// State reports the lifecycle state of id.
func (r *Registry) State(id CapabilityID) CapabilityState {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.values[id] != nil:
		return Ready
	case r.loading[id]:
		return Loading
	default:
		return Unavailable
	}
}

// Ensure returns the capability for id, loading it first if needed.
// Load failures are returned as an [*Error] of kind [KindLoad].
func (r *Registry) Ensure(ctx context.Context, id CapabilityID) (any, error) {
	r.mu.Lock()
	if v := r.values[id]; v != nil {
		r.mu.Unlock()
		return v, nil
	}
	l, ok := r.loaders[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	if p, ok := l.(Prober); ok {
		if v, present := p.Present(); present && v != nil {
			r.values[id] = v
			r.mu.Unlock()
			r.log.Debug().Str("capability", string(id)).Msg("capability already present")
			return v, nil
		}
	}
	r.mu.Unlock()

	// The shared load must not die with the first caller's context.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(string(id), func() (any, error) {
		return r.load(loadCtx, id, l)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	}
}

func (r *Registry) load(ctx context.Context, id CapabilityID, l Loader) (any, error) {
	r.mu.Lock()
	if v := r.values[id]; v != nil {
		r.mu.Unlock()
		return v, nil
	}
	r.loading[id] = true
	r.mu.Unlock()

	start := time.Now()
	r.log.Info().Str("capability", string(id)).Msg("loading capability")
	v, err := l.Load(ctx)
	if err == nil && v == nil {
		err = fmt.Errorf("loader returned no value")
	}

	r.mu.Lock()
	delete(r.loading, id)
	if err == nil {
		r.values[id] = v
	}
	r.mu.Unlock()

	if err != nil {
		metrics.IncCapabilityLoad(string(id), "error")
		r.log.Error().Err(err).Str("capability", string(id)).Msg("capability load failed")
		return nil, newError(KindLoad, string(id), err)
	}
	metrics.IncCapabilityLoad(string(id), "ok")
	r.log.Info().Str("capability", string(id)).Dur("took", time.Since(start)).Msg("capability ready")
	return v, nil
}

// Close closes every ready capability that implements Close() error.
func (r *Registry) Close() error {
	r.mu.Lock()
	values := make([]any, 0, len(r.values))
	for _, v := range r.values {
		values = append(values, v)
	}
	r.mu.Unlock()

	var first error
	for _, v := range values {
		if c, ok := v.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
