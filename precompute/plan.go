package precompute

import (
	"errors"
	"fmt"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
	"github.com/gogpu/gputypes"
)

// Plan errors.
var (
	// ErrInvalidConfig is returned for a resolution or scattering order count
	// the parameterisation cannot represent.
	ErrInvalidConfig = errors.New("precompute: invalid config")

	// ErrInvalidPlan is returned when a pass reads a table before it is
	// written or reads a table it writes.
	ErrInvalidPlan = errors.New("precompute: invalid plan")
)

// DefaultScatteringOrders is the number of scattering orders computed by
// default.
const DefaultScatteringOrders = 4

// Config selects table sizes and precision.
type Config struct {
	Resolution model.Resolution

	// ScatteringOrders is the highest scattering order; 1 computes single
	// scattering only.
	ScatteringOrders int

	// HalfFloat publishes binary16 tables.
	HalfFloat bool

	// CombinedScattering packs single Mie scattering into the alpha channel
	// of the scattering table instead of a separate table.
	CombinedScattering bool

	// AllowFallback permits half-float tables when the device cannot filter
	// float32 textures.
	AllowFallback bool

	// Capabilities of the device that will sample the tables. Nil means the
	// CPU texel engine.
	Capabilities *render.DeviceCapabilities
}

// DefaultConfig returns the default resolution with four scattering orders.
func DefaultConfig() Config {
	return Config{
		Resolution:       model.DefaultResolution(),
		ScatteringOrders: DefaultScatteringOrders,
	}
}

// Validate reports whether the configuration can be planned.
func (c *Config) Validate() error {
	if !c.Resolution.Valid() {
		return fmt.Errorf("%w: resolution %+v", ErrInvalidConfig, c.Resolution)
	}
	if c.ScatteringOrders < 1 {
		return fmt.Errorf("%w: %d scattering orders", ErrInvalidConfig, c.ScatteringOrders)
	}
	return nil
}

func (c *Config) capabilities() render.DeviceCapabilities {
	if c.Capabilities == nil {
		return render.SoftwareCapabilities()
	}
	return *c.Capabilities
}

// Blend is how a pass output combines with the existing target contents.
type Blend int

const (
	// BlendReplace overwrites the target.
	BlendReplace Blend = iota
	// BlendAdd adds the output to the target in float32.
	BlendAdd
)

// Output is one render target of a pass.
type Output struct {
	Texture TextureID
	Blend   Blend
}

// Kernel evaluates texel (x, y, z) of a pass target and stores one value per
// pass output in out.
type Kernel func(in *Inputs, x, y, z int, out [][4]float32)

// Pass is one step of a plan.
type Pass struct {
	Name string

	// Order is the scattering order the pass belongs to; 0 for the
	// transmittance and direct irradiance passes.
	Order int

	// Target is the grid the kernel is evaluated over. Every output has
	// this shape.
	Target Shape

	Inputs  []TextureID
	Outputs []Output
	Kernel  Kernel
}

// Plan is the ordered list of passes producing a texture set.
type Plan struct {
	Params model.Parameters
	Config Config
	Shapes [NumTextures]Shape
	Passes []Pass
}

// Inputs binds tables to a kernel invocation.
type Inputs struct {
	textures [NumTextures]*texture.Texture3D
}

// Bind makes t readable as id.
func (in *Inputs) Bind(id TextureID, t *texture.Texture3D) {
	in.textures[id] = t
}

// Texture returns the table bound to id.
func (in *Inputs) Texture(id TextureID) *texture.Texture3D {
	return in.textures[id]
}

// Sampler2D returns a 2D view of a table stored with depth 1.
func (in *Inputs) Sampler2D(id TextureID) model.Sampler2D {
	return plane{in.textures[id]}
}

// Sampler3D returns the table bound to id.
func (in *Inputs) Sampler3D(id TextureID) model.Sampler3D {
	return in.textures[id]
}

// plane samples the single slice of a depth-1 volume.
type plane struct{ t *texture.Texture3D }

func (p plane) Sample(u, v float64) [4]float64 { return p.t.Sample(u, v, 0.5) }

// BuildPlan returns the passes computing the tables for params.
func BuildPlan(params model.Parameters, cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	res := cfg.Resolution
	trans := Shape{res.TransmittanceWidth, res.TransmittanceHeight, 1}
	irr := Shape{res.IrradianceWidth, res.IrradianceHeight, 1}
	w, h, d := res.ScatteringSize()
	scat := Shape{w, h, d}

	plan := &Plan{Params: params, Config: cfg}
	plan.Shapes = [NumTextures]Shape{
		Transmittance:   trans,
		Irradiance:      irr,
		DeltaIrradiance: irr,
		DeltaRayleigh:   scat,
		DeltaMie:        scat,
		Scattering:      scat,
		DeltaDensity:    scat,
		DeltaMultiple:   scat,
	}
	if !cfg.CombinedScattering {
		plan.Shapes[SingleMie] = scat
	}

	p := &plan.Params
	plan.Passes = append(plan.Passes,
		Pass{
			Name:    "transmittance",
			Target:  trans,
			Outputs: []Output{{Transmittance, BlendReplace}},
			Kernel: func(_ *Inputs, x, y, _ int, out [][4]float32) {
				out[0] = model.Texel(p.TransmittanceTexel(res, x, y), 1)
			},
		},
		Pass{
			Name:    "direct_irradiance",
			Target:  irr,
			Inputs:  []TextureID{Transmittance},
			Outputs: []Output{{DeltaIrradiance, BlendReplace}, {Irradiance, BlendReplace}},
			Kernel: func(in *Inputs, x, y, _ int, out [][4]float32) {
				out[0] = model.Texel(p.DirectIrradianceTexel(res, in.Sampler2D(Transmittance), x, y), 1)
				// Direct light is added by the evaluator, not stored.
				out[1] = [4]float32{}
			},
		},
		singleScatteringPass(p, res, scat, cfg.CombinedScattering),
	)

	for order := 2; order <= cfg.ScatteringOrders; order++ {
		plan.Passes = append(plan.Passes,
			scatteringDensityPass(p, res, scat, order),
			indirectIrradiancePass(p, res, irr, order),
			multipleScatteringPass(p, res, scat, order),
		)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func singleScatteringPass(p *model.Parameters, res model.Resolution, target Shape, combined bool) Pass {
	outputs := []Output{
		{DeltaRayleigh, BlendReplace},
		{DeltaMie, BlendReplace},
		{Scattering, BlendReplace},
	}
	if !combined {
		outputs = append(outputs, Output{SingleMie, BlendReplace})
	}
	return Pass{
		Name:    "single_scattering",
		Order:   1,
		Target:  target,
		Inputs:  []TextureID{Transmittance},
		Outputs: outputs,
		Kernel: func(in *Inputs, x, y, z int, out [][4]float32) {
			rayleigh, mie := p.SingleScatteringTexel(res, in.Sampler2D(Transmittance), x, y, z)
			out[0] = model.Texel(rayleigh, 0)
			out[1] = model.Texel(mie, 0)
			if combined {
				out[2] = model.Texel(rayleigh, mie[0])
				return
			}
			out[2] = model.Texel(rayleigh, 0)
			out[3] = model.Texel(mie, 0)
		},
	}
}

// scatteringTables binds the tables holding scattering of order n to the
// integrators. Order 1 lives in the single Rayleigh and Mie tables.
func scatteringTables(in *Inputs, n int) *model.ScatteringTables {
	tb := &model.ScatteringTables{
		Transmittance: in.Sampler2D(Transmittance),
	}
	if n == 1 {
		tb.SingleRayleigh = in.Sampler3D(DeltaRayleigh)
		tb.SingleMie = in.Sampler3D(DeltaMie)
	} else {
		tb.Multiple = in.Sampler3D(DeltaMultiple)
	}
	return tb
}

func previousOrderInputs(order int) []TextureID {
	if order-1 == 1 {
		return []TextureID{DeltaRayleigh, DeltaMie}
	}
	return []TextureID{DeltaMultiple}
}

func scatteringDensityPass(p *model.Parameters, res model.Resolution, target Shape, order int) Pass {
	inputs := append([]TextureID{Transmittance, DeltaIrradiance}, previousOrderInputs(order)...)
	return Pass{
		Name:    "scattering_density",
		Order:   order,
		Target:  target,
		Inputs:  inputs,
		Outputs: []Output{{DeltaDensity, BlendReplace}},
		Kernel: func(in *Inputs, x, y, z int, out [][4]float32) {
			tb := scatteringTables(in, order-1)
			tb.Irradiance = in.Sampler2D(DeltaIrradiance)
			out[0] = model.Texel(p.ScatteringDensityTexel(res, tb, x, y, z, order), 0)
		},
	}
}

func indirectIrradiancePass(p *model.Parameters, res model.Resolution, target Shape, order int) Pass {
	return Pass{
		Name:    "indirect_irradiance",
		Order:   order,
		Target:  target,
		Inputs:  append([]TextureID{Transmittance}, previousOrderInputs(order)...),
		Outputs: []Output{{DeltaIrradiance, BlendReplace}, {Irradiance, BlendAdd}},
		Kernel: func(in *Inputs, x, y, _ int, out [][4]float32) {
			tb := scatteringTables(in, order-1)
			v := model.Texel(p.IndirectIrradianceTexel(res, tb, x, y, order-1), 0)
			out[0] = v
			out[1] = v
		},
	}
}

func multipleScatteringPass(p *model.Parameters, res model.Resolution, target Shape, order int) Pass {
	return Pass{
		Name:    "multiple_scattering",
		Order:   order,
		Target:  target,
		Inputs:  []TextureID{Transmittance, DeltaDensity},
		Outputs: []Output{{DeltaMultiple, BlendReplace}, {Scattering, BlendAdd}},
		Kernel: func(in *Inputs, x, y, z int, out [][4]float32) {
			ms, nu := p.MultipleScatteringTexel(res, in.Sampler2D(Transmittance), in.Sampler3D(DeltaDensity), x, y, z)
			out[0] = model.Texel(ms, 0)
			// The scattering table stores Rayleigh-like radiance without
			// its phase function.
			out[1] = model.Texel(ms.Scale(1/model.RayleighPhaseFunction(nu)), 0)
		},
	}
}

// Validate checks that every pass reads only tables written by earlier
// passes, never reads a table it writes, blends additively only into
// written tables and writes outputs matching its target shape.
func (pl *Plan) Validate() error {
	var written [NumTextures]bool
	for i := range pl.Passes {
		pass := &pl.Passes[i]
		if len(pass.Outputs) == 0 || pass.Kernel == nil {
			return fmt.Errorf("%w: pass %d %s has no outputs", ErrInvalidPlan, i, pass.Name)
		}
		writes := map[TextureID]bool{}
		for _, o := range pass.Outputs {
			if writes[o.Texture] {
				return fmt.Errorf("%w: pass %s writes %s twice", ErrInvalidPlan, pass.Name, o.Texture)
			}
			writes[o.Texture] = true
			if pl.Shapes[o.Texture] != pass.Target {
				return fmt.Errorf("%w: pass %s target %v does not match %s", ErrInvalidPlan, pass.Name, pass.Target, o.Texture)
			}
			if o.Blend == BlendAdd && !written[o.Texture] {
				return fmt.Errorf("%w: pass %s blends into unwritten %s", ErrInvalidPlan, pass.Name, o.Texture)
			}
		}
		for _, id := range pass.Inputs {
			if !written[id] {
				return fmt.Errorf("%w: pass %s reads %s before it is written", ErrInvalidPlan, pass.Name, id)
			}
			if writes[id] {
				return fmt.Errorf("%w: pass %s reads and writes %s", ErrInvalidPlan, pass.Name, id)
			}
		}
		for _, o := range pass.Outputs {
			written[o.Texture] = true
		}
	}
	return nil
}

// MaxOutputs returns the largest number of render targets written by one
// pass.
func (pl *Plan) MaxOutputs() int {
	n := 0
	for i := range pl.Passes {
		n = max(n, len(pl.Passes[i].Outputs))
	}
	return n
}

// Published lists the tables of the final texture set.
func (pl *Plan) Published() []TextureID {
	if pl.Config.CombinedScattering {
		return []TextureID{Transmittance, Scattering, Irradiance}
	}
	return []TextureID{Transmittance, Scattering, SingleMie, Irradiance}
}

// Descriptors returns the GPU texture descriptors of the published tables.
func (pl *Plan) Descriptors(format gputypes.TextureFormat) []render.TextureDescriptor {
	ids := pl.Published()
	out := make([]render.TextureDescriptor, len(ids))
	for i, id := range ids {
		s := pl.Shapes[id]
		out[i] = render.LookupTableDescriptor(id.String(), s.Width, s.Height, s.Depth, format)
	}
	return out
}

// Allocate returns zeroed tables for every shape of the plan.
func (pl *Plan) Allocate() [NumTextures]*texture.Texture3D {
	var out [NumTextures]*texture.Texture3D
	for id, s := range pl.Shapes {
		if s.Texels() > 0 {
			out[id] = texture.NewTexture3D(s.Width, s.Height, s.Depth)
		}
	}
	return out
}
