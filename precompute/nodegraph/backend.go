package nodegraph

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
)

func init() {
	precompute.Register(precompute.BackendNodeGraph, func() precompute.Backend {
		return New(0)
	})
}

// Backend is the node graph precomputation backend.
type Backend struct {
	workers int
	logger  atomic.Pointer[slog.Logger]
}

// New returns a node graph backend evaluating kernel nodes with up to the
// given number of goroutines. Zero or negative means GOMAXPROCS.
func New(workers int) *Backend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Backend{workers: workers}
}

// Name returns "nodegraph".
func (b *Backend) Name() string { return precompute.BackendNodeGraph }

// SetLogger overrides the package logger for this backend.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger.Store(l) }

func (b *Backend) log() *slog.Logger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	return precompute.Logger()
}

// Require checks for compute support; kernel nodes write storage textures.
func (b *Backend) Require(caps render.DeviceCapabilities, _ *precompute.Plan) error {
	if !caps.SupportsCompute || !caps.SupportsStorageTextures {
		return &render.CapabilityError{
			Feature: render.FeatureCompute,
			Detail:  "node graphs need compute shaders with storage textures",
		}
	}
	return nil
}

// Execute compiles plan and evaluates the graph.
func (b *Backend) Execute(ctx context.Context, plan *precompute.Plan) ([precompute.NumTextures]*texture.Texture3D, error) {
	var none [precompute.NumTextures]*texture.Texture3D
	g, err := Compile(plan)
	if err != nil {
		return none, err
	}
	counts := g.Count()
	b.log().Debug("nodegraph: compiled",
		"kernels", counts[KindKernel],
		"adds", counts[KindAdd],
		"nodes", len(g.Nodes))
	return g.Evaluate(ctx, b.workers, b.log())
}

type value struct {
	tex  *texture.Texture3D
	outs []*texture.Texture3D
}

// Evaluate runs every node in order and returns the final value of each
// table. Intermediate values are dropped once their last consumer has run.
func (g *Graph) Evaluate(ctx context.Context, workers int, log *slog.Logger) ([precompute.NumTextures]*texture.Texture3D, error) {
	var none [precompute.NumTextures]*texture.Texture3D

	values := make([]value, len(g.Nodes))
	remaining := make([]int, len(g.Nodes))
	keep := make([]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, in := range n.Inputs {
			remaining[in.ID]++
		}
	}
	for _, n := range g.Results {
		if n != nil {
			keep[n.ID] = true
		}
	}

	for _, n := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return none, err
		}
		switch n.Kind {
		case KindZero:
			values[n.ID].tex = texture.NewTexture3D(n.Shape.Width, n.Shape.Height, n.Shape.Depth)
		case KindKernel:
			start := time.Now()
			outs, err := evalKernel(ctx, n, values, workers)
			if err != nil {
				return none, err
			}
			values[n.ID].outs = outs
			log.Debug("nodegraph: kernel done", "node", n.Label, "elapsed", time.Since(start))
		case KindOutput:
			values[n.ID].tex = values[n.Inputs[0].ID].outs[n.Slot]
		case KindAdd:
			values[n.ID].tex = add(values[n.Inputs[0].ID].tex, values[n.Inputs[1].ID].tex)
		}

		for _, in := range n.Inputs {
			remaining[in.ID]--
			if remaining[in.ID] == 0 && !keep[in.ID] {
				values[in.ID] = value{}
			}
		}
	}

	var out [precompute.NumTextures]*texture.Texture3D
	for id, n := range g.Results {
		if n != nil {
			out[id] = values[n.ID].tex
		}
	}
	return out, nil
}

func evalKernel(ctx context.Context, n *Node, values []value, workers int) ([]*texture.Texture3D, error) {
	pass := n.Pass
	var in precompute.Inputs
	for id, src := range n.Bindings {
		in.Bind(id, values[src.ID].tex)
	}

	s := pass.Target
	outs := make([]*texture.Texture3D, len(pass.Outputs))
	for i := range outs {
		outs[i] = texture.NewTexture3D(s.Width, s.Height, s.Depth)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for row := range s.Rows() {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			y, z := row%s.Height, row/s.Height
			texel := make([][4]float32, len(outs))
			for x := range s.Width {
				pass.Kernel(&in, x, y, z, texel)
				for i, t := range outs {
					t.SetTexel(x, y, z, texel[i])
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// add returns a+b computed in float32.
func add(a, b *texture.Texture3D) *texture.Texture3D {
	out := texture.NewTexture3D(a.Width, a.Height, a.Depth)
	for i := range out.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}
