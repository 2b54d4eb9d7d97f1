package atmosphere

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/gogpu/atmosphere/loader"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/precompute/nodegraph"
	"github.com/gogpu/atmosphere/precompute/raster"
)

// Dirty records which derived state is out of date.
type Dirty uint8

const (
	// DirtyTables means the lookup tables must be recomputed.
	DirtyTables Dirty = 1 << iota

	// DirtyPlacement means evaluators must be recreated to pick up a new
	// ellipsoid or altitude correction setting.
	DirtyPlacement
)

// Atmosphere owns atmosphere parameters and the texture set derived from
// them.
//
// Setters never recompute: they record what changed and Sync brings the
// derived state up to date. All methods are safe for concurrent use.
type Atmosphere struct {
	mu         sync.Mutex
	params     Parameters
	opts       options
	dirty      Dirty
	generation uint64
	cancel     context.CancelFunc
	disposed   bool

	current atomic.Pointer[published]
}

// published pairs a texture set with the parameters it was built for.
type published struct {
	set    *TextureSet
	params Parameters
}

// New returns an Atmosphere for params. No tables exist until Sync,
// Precompute or Load is called.
func New(params Parameters, opts ...Option) (*Atmosphere, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Atmosphere{
		params: params,
		opts:   o,
		dirty:  DirtyTables | DirtyPlacement,
	}, nil
}

// Parameters returns the current parameters.
func (a *Atmosphere) Parameters() Parameters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// Dirty returns the pending changes.
func (a *Atmosphere) Dirty() Dirty {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// SetParameters replaces the parameters. Invalid parameters are rejected
// and leave the Atmosphere unchanged.
func (a *Atmosphere) SetParameters(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.params = p
	a.dirty |= DirtyTables
	return nil
}

// SetResolution changes the lookup table sizes.
func (a *Atmosphere) SetResolution(r Resolution) error {
	return a.reconfigure(func(o *options) { o.resolution = r })
}

// SetScatteringOrders changes the number of scattering orders.
func (a *Atmosphere) SetScatteringOrders(n int) error {
	return a.reconfigure(func(o *options) { o.orders = n })
}

// SetHalfFloat switches the published table precision.
func (a *Atmosphere) SetHalfFloat(half bool) error {
	return a.reconfigure(func(o *options) { o.halfFloat = half })
}

// SetCombinedScattering switches the single Mie storage layout.
func (a *Atmosphere) SetCombinedScattering(combined bool) error {
	return a.reconfigure(func(o *options) { o.combinedScattering = combined })
}

func (a *Atmosphere) reconfigure(apply func(*options)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	o := a.opts
	apply(&o)
	cfg := o.config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.opts = o
	a.dirty |= DirtyTables
	return nil
}

// SetAltitudeCorrection toggles the osculating sphere placement. Evaluators
// created afterwards use the new setting.
func (a *Atmosphere) SetAltitudeCorrection(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opts.altitudeCorrection != enabled {
		a.opts.altitudeCorrection = enabled
		a.dirty |= DirtyPlacement
	}
}

// Sync recomputes the tables if parameters or configuration changed since
// the last publication, and clears the placement flag.
func (a *Atmosphere) Sync(ctx context.Context) error {
	a.mu.Lock()
	dirty := a.dirty
	a.dirty &^= DirtyPlacement
	a.mu.Unlock()

	if dirty&DirtyTables == 0 {
		return nil
	}
	_, err := a.Precompute(ctx)
	return err
}

// Precompute computes a new texture set and publishes it.
//
// A call supersedes any precomputation still in flight, which then returns
// ErrSuperseded without publishing; so does a run interrupted by Dispose.
// If ctx is cancelled or the backend fails, nothing is published and the
// tables stay dirty.
func (a *Atmosphere) Precompute(ctx context.Context) (*TextureSet, error) {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil, ErrDisposed
	}
	gen := a.supersede()
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	params := a.params
	opts := a.opts
	a.dirty &^= DirtyTables
	a.mu.Unlock()
	defer cancel()

	b, err := opts.newBackend()
	if err != nil {
		a.finish(gen)
		return nil, err
	}
	propagateLogger(b, Logger())

	set, err := precompute.Run(runCtx, b, params, opts.config())

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		Logger().Warn("atmosphere: precomputation superseded", "generation", gen)
		return nil, ErrSuperseded
	}
	a.cancel = nil
	if err != nil {
		a.dirty |= DirtyTables
		return nil, err
	}
	a.current.Store(&published{set: set, params: params})
	return set, nil
}

// finish records a failed run that never reached the backend.
func (a *Atmosphere) finish(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen == a.generation {
		a.cancel = nil
		a.dirty |= DirtyTables
	}
}

// supersede starts a new generation and cancels the run in flight.
// Caller must hold a.mu.
func (a *Atmosphere) supersede() uint64 {
	a.generation++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return a.generation
}

func (o *options) newBackend() (precompute.Backend, error) {
	switch o.backend {
	case "":
		if o.workers == 0 {
			if b := precompute.Default(); b != nil {
				return b, nil
			}
			return nil, precompute.ErrBackendNotAvailable
		}
		return raster.New(o.workers), nil
	case precompute.BackendRaster:
		return raster.New(o.workers), nil
	case precompute.BackendNodeGraph:
		return nodegraph.New(o.workers), nil
	}
	if b := precompute.Get(o.backend); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", precompute.ErrBackendNotAvailable, o.backend)
}

// Load publishes a texture set produced elsewhere, typically by the loader
// package. It supersedes any precomputation in flight. The set's resolution
// and layout replace the configured ones.
func (a *Atmosphere) Load(set *TextureSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return ErrDisposed
	}
	a.supersede()
	a.opts.resolution = set.Resolution
	a.opts.halfFloat = set.HalfFloat
	a.opts.combinedScattering = set.Combined()
	a.dirty &^= DirtyTables
	a.current.Store(&published{set: set, params: a.params})
	return nil
}

// LoadFS loads artifacts from fsys and publishes them.
func (a *Atmosphere) LoadFS(ctx context.Context, fsys fs.FS) error {
	set, err := loader.LoadFS(ctx, fsys)
	if err != nil {
		return err
	}
	return a.Load(set)
}

// LoadAsync loads artifacts in the background and publishes them. done
// receives the load or publication error. Cancelling ctx, or a successful
// Cancel on the returned handle, abandons the load: done is not called.
func (a *Atmosphere) LoadAsync(ctx context.Context, fsys fs.FS, m loader.Manifest, done func(error)) *loader.Handle {
	return loader.Async(ctx, fsys, m, func(set *TextureSet, err error) {
		if err == nil {
			err = a.Load(set)
		}
		if done != nil {
			done(err)
		}
	})
}

// Textures returns the published texture set, or nil.
func (a *Atmosphere) Textures() *TextureSet {
	if p := a.current.Load(); p != nil {
		return p.set
	}
	return nil
}

// Evaluator returns a runtime evaluator over the published texture set and
// the parameters it was built for.
func (a *Atmosphere) Evaluator() (*Evaluator, error) {
	p := a.current.Load()
	if p == nil {
		return nil, ErrNoTextures
	}
	a.mu.Lock()
	opts := a.opts
	a.mu.Unlock()

	ev := NewEvaluator(p.params, p.set)
	ev.ellipsoid = opts.ellipsoid
	ev.altitudeCorrection = opts.altitudeCorrection
	return ev, nil
}

// Dispose cancels any precomputation in flight and releases the texture
// set. Evaluators already handed out keep working on the old set.
func (a *Atmosphere) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.supersede()
	a.disposed = true
	a.current.Store(nil)
}
