package precompute

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
	"github.com/gogpu/gputypes"
)

// Run plans and executes a precomputation on backend b.
//
// Capabilities are checked before any pass is dispatched. When ctx is
// cancelled or a pass fails, Run returns the error and no texture set:
// partial results are never published.
func Run(ctx context.Context, b Backend, params model.Parameters, cfg Config) (*TextureSet, error) {
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	plan, err := BuildPlan(params, cfg)
	if err != nil {
		return nil, err
	}

	format, err := checkCapabilities(b, plan)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := Logger()
	start := time.Now()
	tables, err := b.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("precompute: %s backend: %w", b.Name(), err)
	}
	// A backend may finish its last pass after cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := plan.publish(tables, format)
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if set.HalfFloat {
		for _, a := range set.Artifacts() {
			texture.QuantizeHalf(a.Data)
		}
	}
	log.Info("precompute: tables ready",
		"backend", b.Name(),
		"orders", cfg.ScatteringOrders,
		"format", format.String(),
		"bytes", set.ByteSize(),
		"elapsed", time.Since(start))
	return set, nil
}

func checkCapabilities(b Backend, plan *Plan) (gputypes.TextureFormat, error) {
	caps := plan.Config.capabilities()
	format, fellBack, err := render.SelectFormat(caps, plan.Config.HalfFloat, plan.Config.AllowFallback)
	if err != nil {
		return gputypes.TextureFormatUndefined, err
	}
	if fellBack {
		Logger().Warn("precompute: float32 filtering unavailable, using half-float tables",
			"device", caps.DeviceName)
	}
	for _, desc := range plan.Descriptors(format) {
		if err := render.CheckTextureSize(caps, desc); err != nil {
			return gputypes.TextureFormatUndefined, err
		}
	}
	if err := b.Require(caps, plan); err != nil {
		return gputypes.TextureFormatUndefined, err
	}
	return format, nil
}

// publish assembles the texture set from the final tables.
func (pl *Plan) publish(tables [NumTextures]*texture.Texture3D, format gputypes.TextureFormat) *TextureSet {
	half := format == gputypes.TextureFormatRGBA16Float
	set := &TextureSet{
		Resolution: pl.Config.Resolution,
		Format:     format,
		HalfFloat:  half,
		Scattering: tables[Scattering],
	}
	if t := tables[Transmittance]; t != nil {
		set.Transmittance = flatten(t)
	}
	if t := tables[Irradiance]; t != nil {
		set.Irradiance = flatten(t)
	}
	if !pl.Config.CombinedScattering {
		set.SingleMie = tables[SingleMie]
	}
	return set
}
