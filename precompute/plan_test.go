package precompute

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
	"github.com/gogpu/gputypes"
)

func tinyConfig() Config {
	return Config{
		Resolution: model.Resolution{
			TransmittanceWidth:  16,
			TransmittanceHeight: 8,
			ScatteringR:         4,
			ScatteringMu:        8,
			ScatteringMuS:       4,
			ScatteringNu:        2,
			IrradianceWidth:     8,
			IrradianceHeight:    4,
		},
		ScatteringOrders: 3,
	}
}

// =============================================================================
// Plan
// =============================================================================

func TestBuildPlanPassOrder(t *testing.T) {
	plan, err := BuildPlan(model.DefaultParameters(), tinyConfig())
	require.NoError(t, err)

	var names []string
	for _, p := range plan.Passes {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"transmittance",
		"direct_irradiance",
		"single_scattering",
		"scattering_density",
		"indirect_irradiance",
		"multiple_scattering",
		"scattering_density",
		"indirect_irradiance",
		"multiple_scattering",
	}, names)

	assert.Equal(t, 3, plan.Passes[8].Order)
	assert.Equal(t, 4, plan.MaxOutputs())
	assert.Equal(t, []TextureID{Transmittance, Scattering, SingleMie, Irradiance}, plan.Published())
}

func TestBuildPlanSingleOrder(t *testing.T) {
	cfg := tinyConfig()
	cfg.ScatteringOrders = 1
	cfg.CombinedScattering = true
	plan, err := BuildPlan(model.DefaultParameters(), cfg)
	require.NoError(t, err)

	assert.Len(t, plan.Passes, 3)
	assert.Equal(t, 3, plan.MaxOutputs())
	assert.Equal(t, Shape{}, plan.Shapes[SingleMie])
	assert.Equal(t, []TextureID{Transmittance, Scattering, Irradiance}, plan.Published())
}

func TestBuildPlanRejectsInvalidInput(t *testing.T) {
	cfg := tinyConfig()
	cfg.Resolution.ScatteringMu = 7
	_, err := BuildPlan(model.DefaultParameters(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = tinyConfig()
	cfg.ScatteringOrders = 0
	_, err = BuildPlan(model.DefaultParameters(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	params := model.DefaultParameters()
	params.TopRadius = params.BottomRadius
	_, err = BuildPlan(params, tinyConfig())
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestPlanValidate(t *testing.T) {
	nop := func(*Inputs, int, int, int, [][4]float32) {}
	s := Shape{4, 4, 1}
	shapes := [NumTextures]Shape{Transmittance: s, Irradiance: s, DeltaIrradiance: s}

	tests := []struct {
		name   string
		passes []Pass
	}{
		{"read before write", []Pass{
			{Name: "a", Target: s, Inputs: []TextureID{Transmittance}, Outputs: []Output{{Irradiance, BlendReplace}}, Kernel: nop},
		}},
		{"feedback loop", []Pass{
			{Name: "a", Target: s, Outputs: []Output{{Transmittance, BlendReplace}}, Kernel: nop},
			{Name: "b", Target: s, Inputs: []TextureID{Transmittance}, Outputs: []Output{{Transmittance, BlendReplace}}, Kernel: nop},
		}},
		{"add into unwritten", []Pass{
			{Name: "a", Target: s, Outputs: []Output{{Irradiance, BlendAdd}}, Kernel: nop},
		}},
		{"shape mismatch", []Pass{
			{Name: "a", Target: Shape{2, 2, 1}, Outputs: []Output{{Irradiance, BlendReplace}}, Kernel: nop},
		}},
		{"duplicate output", []Pass{
			{Name: "a", Target: s, Outputs: []Output{{Irradiance, BlendReplace}, {Irradiance, BlendReplace}}, Kernel: nop},
		}},
		{"no kernel", []Pass{
			{Name: "a", Target: s, Outputs: []Output{{Irradiance, BlendReplace}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &Plan{Shapes: shapes, Passes: tt.passes}
			assert.ErrorIs(t, plan.Validate(), ErrInvalidPlan)
		})
	}
}

func TestTextureIDString(t *testing.T) {
	assert.Equal(t, "single_mie_scattering", SingleMie.String())
	assert.Equal(t, "TextureID(42)", TextureID(42).String())
}

// =============================================================================
// Registry
// =============================================================================

type fakeBackend struct {
	name     string
	require  error
	executed int
	run      func(ctx context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error)
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Require(render.DeviceCapabilities, *Plan) error { return f.require }

func (f *fakeBackend) Execute(ctx context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error) {
	f.executed++
	if f.run != nil {
		return f.run(ctx, plan)
	}
	return plan.Allocate(), nil
}

func TestRegistry(t *testing.T) {
	Register("fake-b", func() Backend { return &fakeBackend{name: "fake-b"} })
	Register("fake-a", func() Backend { return &fakeBackend{name: "fake-a"} })
	defer Unregister("fake-a")
	defer Unregister("fake-b")

	assert.Contains(t, Available(), "fake-a")
	assert.Contains(t, Available(), "fake-b")
	require.NotNil(t, Get("fake-a"))
	assert.Equal(t, "fake-a", Get("fake-a").Name())
	assert.Nil(t, Get("missing"))
	assert.NotNil(t, Default())
}

// =============================================================================
// Run
// =============================================================================

func TestRunChecksCapabilitiesFirst(t *testing.T) {
	cfg := tinyConfig()
	caps := render.SoftwareCapabilities()
	caps.Float32Filterable = false
	cfg.Capabilities = &caps

	b := &fakeBackend{name: "fake"}
	set, err := Run(context.Background(), b, model.DefaultParameters(), cfg)
	assert.Nil(t, set)
	var capErr *render.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, render.FeatureFloat32Filterable, capErr.Feature)
	assert.Zero(t, b.executed)

	b.require = &render.CapabilityError{Feature: render.FeatureCompute}
	cfg.Capabilities = nil
	_, err = Run(context.Background(), b, model.DefaultParameters(), cfg)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, render.FeatureCompute, capErr.Feature)
	assert.Zero(t, b.executed)
}

func TestRunFallbackPublishesHalfFloat(t *testing.T) {
	cfg := tinyConfig()
	caps := render.SoftwareCapabilities()
	caps.Float32Filterable = false
	cfg.Capabilities = &caps
	cfg.AllowFallback = true

	b := &fakeBackend{name: "fake", run: func(_ context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error) {
		out := plan.Allocate()
		out[Scattering].Data[0] = 0.1
		return out, nil
	}}
	set, err := Run(context.Background(), b, model.DefaultParameters(), cfg)
	require.NoError(t, err)
	assert.True(t, set.HalfFloat)
	assert.Equal(t, gputypes.TextureFormatRGBA16Float, set.Format)
	// 0.1 is not representable in binary16.
	assert.NotEqual(t, float32(0.1), set.Scattering.Data[0])
	assert.InDelta(t, 0.1, set.Scattering.Data[0], 1e-4)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBackend{name: "fake"}
	set, err := Run(ctx, b, model.DefaultParameters(), tinyConfig())
	assert.Nil(t, set)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, b.executed)

	// A backend completing after cancellation publishes nothing either.
	ctx, cancel = context.WithCancel(context.Background())
	b = &fakeBackend{name: "fake", run: func(_ context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error) {
		cancel()
		return plan.Allocate(), nil
	}}
	set, err = Run(ctx, b, model.DefaultParameters(), tinyConfig())
	assert.Nil(t, set)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsIncompleteResult(t *testing.T) {
	b := &fakeBackend{name: "fake", run: func(_ context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error) {
		out := plan.Allocate()
		out[Irradiance] = nil
		return out, nil
	}}
	_, err := Run(context.Background(), b, model.DefaultParameters(), tinyConfig())
	assert.ErrorIs(t, err, ErrIncompleteSet)

	_, err = Run(context.Background(), nil, model.DefaultParameters(), tinyConfig())
	assert.True(t, errors.Is(err, ErrBackendNotAvailable))
}

func TestTextureSetArtifacts(t *testing.T) {
	plan, err := BuildPlan(model.DefaultParameters(), tinyConfig())
	require.NoError(t, err)
	set := plan.publish(plan.Allocate(), gputypes.TextureFormatRGBA32Float)
	require.NoError(t, set.Validate())

	arts := set.Artifacts()
	require.Len(t, arts, 4)
	assert.Equal(t, "transmittance", arts[0].Name)
	assert.Equal(t, "irradiance", arts[3].Name)
	assert.Equal(t, 1, arts[0].Depth)
	assert.Equal(t, 4, arts[1].Depth)

	want := (16*8 + 8*4*8*2 + 8*4) * 16
	assert.Equal(t, want, set.ByteSize())
	assert.False(t, set.Combined())
	assert.NotNil(t, set.Tables().SingleMie)
}
