// Package raster executes precomputation plans the way a rasterizer runs
// fragment passes: every pass renders into its render targets one texel
// centre at a time, with replace outputs written to a back buffer that is
// swapped in when the pass completes and additive outputs blended in place.
package raster

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gogpu/atmosphere/internal/parallel"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
)

func init() {
	precompute.Register(precompute.BackendRaster, func() precompute.Backend {
		return New(0)
	})
}

// Backend is the raster precomputation backend.
type Backend struct {
	workers int
	logger  atomic.Pointer[slog.Logger]
}

// New returns a raster backend evaluating rows on the given number of
// workers. Zero or negative means GOMAXPROCS.
func New(workers int) *Backend {
	return &Backend{workers: workers}
}

// Name returns "raster".
func (b *Backend) Name() string { return precompute.BackendRaster }

// SetLogger overrides the package logger for this backend.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger.Store(l) }

func (b *Backend) log() *slog.Logger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	return precompute.Logger()
}

// Require checks that a single pass can write all of its render targets.
func (b *Backend) Require(caps render.DeviceCapabilities, plan *precompute.Plan) error {
	if n := plan.MaxOutputs(); int(caps.MaxColorAttachments) < n {
		return &render.CapabilityError{
			Feature: render.FeatureMultipleRenderTargets,
			Detail:  fmt.Sprintf("%d color attachments, plan needs %d", caps.MaxColorAttachments, n),
		}
	}
	return nil
}

// Execute runs the passes of plan in order.
func (b *Backend) Execute(ctx context.Context, plan *precompute.Plan) ([precompute.NumTextures]*texture.Texture3D, error) {
	pool := parallel.NewWorkerPool(b.workers)
	defer pool.Close()

	front := plan.Allocate()
	var back [precompute.NumTextures]*texture.Texture3D
	log := b.log()

	for i := range plan.Passes {
		if err := ctx.Err(); err != nil {
			return [precompute.NumTextures]*texture.Texture3D{}, err
		}
		pass := &plan.Passes[i]
		start := time.Now()

		var in precompute.Inputs
		for _, id := range pass.Inputs {
			in.Bind(id, front[id])
		}

		targets := make([]*texture.Texture3D, len(pass.Outputs))
		for j, o := range pass.Outputs {
			if o.Blend == precompute.BlendAdd {
				targets[j] = front[o.Texture]
				continue
			}
			if back[o.Texture] == nil {
				s := plan.Shapes[o.Texture]
				back[o.Texture] = texture.NewTexture3D(s.Width, s.Height, s.Depth)
			}
			targets[j] = back[o.Texture]
		}

		if err := pool.Rows(ctx, pass.Target.Rows(), func(row int) {
			drawRow(pass, &in, targets, row)
		}); err != nil {
			return [precompute.NumTextures]*texture.Texture3D{}, err
		}

		for _, o := range pass.Outputs {
			if o.Blend == precompute.BlendReplace {
				front[o.Texture], back[o.Texture] = back[o.Texture], front[o.Texture]
			}
		}

		log.Debug("raster: pass done",
			"pass", pass.Name,
			"order", pass.Order,
			"texels", pass.Target.Texels(),
			"elapsed", time.Since(start))
	}
	return front, nil
}

// drawRow invokes the kernel for every texel of one row of the target grid.
func drawRow(pass *precompute.Pass, in *precompute.Inputs, targets []*texture.Texture3D, row int) {
	w, h := pass.Target.Width, pass.Target.Height
	y, z := row%h, row/h
	out := make([][4]float32, len(pass.Outputs))
	for x := range w {
		pass.Kernel(in, x, y, z, out)
		for j, o := range pass.Outputs {
			blend(targets[j], o.Blend, x, y, z, out[j])
		}
	}
}

func blend(t *texture.Texture3D, mode precompute.Blend, x, y, z int, v [4]float32) {
	i := ((z*t.Height+y)*t.Width + x) * texture.Channels
	if mode == precompute.BlendAdd {
		for c := range texture.Channels {
			t.Data[i+c] += v[c]
		}
		return
	}
	copy(t.Data[i:i+texture.Channels], v[:])
}
