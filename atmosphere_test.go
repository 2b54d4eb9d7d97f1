package atmosphere

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/atmosphere/geodesy"
	"github.com/gogpu/atmosphere/loader"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
)

func smallResolution() Resolution {
	return Resolution{
		TransmittanceWidth:  32,
		TransmittanceHeight: 16,
		ScatteringR:         8,
		ScatteringMu:        32,
		ScatteringMuS:       8,
		ScatteringNu:        4,
		IrradianceWidth:     16,
		IrradianceHeight:    8,
	}
}

func newSmall(t *testing.T, opts ...Option) *Atmosphere {
	t.Helper()
	opts = append([]Option{WithResolution(smallResolution()), WithScatteringOrders(2)}, opts...)
	atm, err := New(DefaultParameters(), opts...)
	require.NoError(t, err)
	t.Cleanup(atm.Dispose)
	return atm
}

// smallSet is precomputed once and shared by the tests that only read it.
var smallSet = sync.OnceValues(func() (*TextureSet, error) {
	atm, err := New(DefaultParameters(), WithResolution(smallResolution()), WithScatteringOrders(2))
	if err != nil {
		return nil, err
	}
	defer atm.Dispose()
	return atm.Precompute(context.Background())
})

// =============================================================================
// Configuration and dirty tracking
// =============================================================================

func TestNewValidates(t *testing.T) {
	p := DefaultParameters()
	p.TopRadius = p.BottomRadius - 1
	_, err := New(p)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = New(DefaultParameters(), WithScatteringOrders(0))
	assert.ErrorIs(t, err, precompute.ErrInvalidConfig)

	bad := smallResolution()
	bad.ScatteringMu = 31
	_, err = New(DefaultParameters(), WithResolution(bad))
	assert.ErrorIs(t, err, precompute.ErrInvalidConfig)
}

func TestParametersFromSpectrumAreValid(t *testing.T) {
	p := NewParametersFromSpectrum()
	require.NoError(t, p.Validate())
	// Rayleigh scattering grows towards blue.
	assert.Greater(t, p.RayleighScattering[2], p.RayleighScattering[0])
}

func TestDirtyTracking(t *testing.T) {
	atm := newSmall(t)
	assert.Equal(t, DirtyTables|DirtyPlacement, atm.Dirty())

	require.NoError(t, atm.Sync(context.Background()))
	assert.Equal(t, Dirty(0), atm.Dirty())
	first := atm.Textures()
	require.NotNil(t, first)

	// A clean Sync does nothing.
	require.NoError(t, atm.Sync(context.Background()))
	assert.Same(t, first, atm.Textures())

	atm.SetAltitudeCorrection(false)
	assert.Equal(t, DirtyPlacement, atm.Dirty())
	atm.SetAltitudeCorrection(false)
	require.NoError(t, atm.Sync(context.Background()))
	assert.Same(t, first, atm.Textures(), "placement changes must not recompute")

	p := DefaultParameters()
	p.GroundAlbedo = Spectrum{0.3, 0.3, 0.3}
	require.NoError(t, atm.SetParameters(p))
	assert.Equal(t, DirtyTables, atm.Dirty())

	bad := p
	bad.MiePhaseFunctionG = 1
	assert.ErrorIs(t, atm.SetParameters(bad), ErrInvalidParameters)
	assert.Equal(t, p, atm.Parameters())

	require.NoError(t, atm.Sync(context.Background()))
	assert.NotSame(t, first, atm.Textures())
	assert.Equal(t, Dirty(0), atm.Dirty())
}

func TestReconfigure(t *testing.T) {
	atm := newSmall(t)
	require.NoError(t, atm.Sync(context.Background()))

	assert.ErrorIs(t, atm.SetScatteringOrders(-1), precompute.ErrInvalidConfig)
	assert.Equal(t, Dirty(0), atm.Dirty())

	require.NoError(t, atm.SetCombinedScattering(true))
	require.NoError(t, atm.SetHalfFloat(true))
	assert.Equal(t, DirtyTables, atm.Dirty())

	require.NoError(t, atm.Sync(context.Background()))
	set := atm.Textures()
	assert.True(t, set.Combined())
	assert.True(t, set.HalfFloat)

	r := smallResolution()
	r.ScatteringNu = 2
	require.NoError(t, atm.SetResolution(r))
	require.NoError(t, atm.Sync(context.Background()))
	assert.Equal(t, r, atm.Textures().Resolution)
}

func TestBackendSelection(t *testing.T) {
	for _, name := range []string{"", precompute.BackendRaster, precompute.BackendNodeGraph} {
		o := defaultOptions()
		o.backend = name
		o.workers = 2
		b, err := o.newBackend()
		require.NoError(t, err, name)
		if name != "" {
			assert.Equal(t, name, b.Name())
		}
	}

	o := defaultOptions()
	o.backend = "vulkan"
	_, err := o.newBackend()
	assert.ErrorIs(t, err, precompute.ErrBackendNotAvailable)
}

func TestCapabilityFailurePublishesNothing(t *testing.T) {
	caps := render.SoftwareCapabilities()
	caps.Float32Filterable = false
	atm := newSmall(t, WithCapabilities(caps))

	err := atm.Sync(context.Background())
	var capErr *render.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Nil(t, atm.Textures())
	assert.Equal(t, DirtyTables, atm.Dirty()&DirtyTables)
}

func TestFallbackRequiresOptIn(t *testing.T) {
	caps := render.SoftwareCapabilities()
	caps.Float32Filterable = false

	_, err := newSmall(t, WithCapabilities(caps)).Precompute(context.Background())
	var capErr *render.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, render.FeatureFloat32Filterable, capErr.Feature)

	set, err := newSmall(t, WithCapabilities(caps), WithFallback(true)).Precompute(context.Background())
	require.NoError(t, err)
	assert.True(t, set.HalfFloat)
	assert.Equal(t, gputypes.TextureFormatRGBA16Float, set.Format)
}

// =============================================================================
// Supersession and lifecycle
// =============================================================================

// gateBackend blocks its first Execute until the context is cancelled.
type gateBackend struct {
	started chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *gateBackend) Name() string { return "gate" }

func (b *gateBackend) Require(render.DeviceCapabilities, *precompute.Plan) error { return nil }

func (b *gateBackend) Execute(ctx context.Context, plan *precompute.Plan) ([precompute.NumTextures]*texture.Texture3D, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()

	tables := plan.Allocate()
	if first {
		close(b.started)
		<-ctx.Done()
		return tables, ctx.Err()
	}
	return tables, nil
}

func TestPrecomputeSupersedes(t *testing.T) {
	gate := &gateBackend{started: make(chan struct{})}
	precompute.Register("gate", func() precompute.Backend { return gate })
	t.Cleanup(func() { precompute.Unregister("gate") })

	atm := newSmall(t, WithBackend("gate"))

	errs := make(chan error, 1)
	go func() {
		_, err := atm.Precompute(context.Background())
		errs <- err
	}()
	<-gate.started

	set, err := atm.Precompute(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Same(t, set, atm.Textures(), "only the newest run is published")
}

func TestLoadSupersedesPrecompute(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)

	gate := &gateBackend{started: make(chan struct{})}
	precompute.Register("gate-load", func() precompute.Backend { return gate })
	t.Cleanup(func() { precompute.Unregister("gate-load") })

	atm := newSmall(t, WithBackend("gate-load"))
	errs := make(chan error, 1)
	go func() {
		_, err := atm.Precompute(context.Background())
		errs <- err
	}()
	<-gate.started

	require.NoError(t, atm.Load(base))
	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Same(t, base, atm.Textures())
	assert.Equal(t, Dirty(0), atm.Dirty()&DirtyTables)
}

func TestPrecomputeCancelled(t *testing.T) {
	atm := newSmall(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := atm.Precompute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, atm.Textures())
	assert.Equal(t, DirtyTables, atm.Dirty()&DirtyTables)
}

func TestDispose(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)

	atm := newSmall(t)
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	atm.Dispose()
	atm.Dispose()
	assert.Nil(t, atm.Textures())
	_, err = atm.Evaluator()
	assert.ErrorIs(t, err, ErrNoTextures)
	_, err = atm.Precompute(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, atm.Load(base), ErrDisposed)

	// Evaluators keep their tables.
	var s RadianceSample
	ev.SolarRadiance()
	ev.SkyRadiance(mgl64.Vec3{0, 0, 6.361e6}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, &s)
}

func TestLoadFromArtifacts(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	files, err := loader.Encode(base, false)
	require.NoError(t, err)
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: data}
	}

	atm, err := New(DefaultParameters())
	require.NoError(t, err)
	defer atm.Dispose()
	require.NoError(t, atm.LoadFS(context.Background(), fsys))
	assert.Equal(t, base.Resolution, atm.Textures().Resolution)
	assert.Equal(t, base.Scattering.Data, atm.Textures().Scattering.Data)

	async, err := New(DefaultParameters())
	require.NoError(t, err)
	defer async.Dispose()
	done := make(chan error, 1)
	h := async.LoadAsync(context.Background(), fsys, loader.ManifestFor(base), func(err error) { done <- err })
	h.Wait()
	require.NoError(t, <-done)
	assert.NotNil(t, async.Textures())

	delete(fsys, loader.FileName("irradiance", false))
	failing, err := New(DefaultParameters())
	require.NoError(t, err)
	defer failing.Dispose()
	err = failing.LoadFS(context.Background(), fsys)
	assert.Error(t, err)
	assert.Nil(t, failing.Textures(), "a failed load publishes nothing")
}

// =============================================================================
// Evaluation
// =============================================================================

func TestEvaluatorRequiresTextures(t *testing.T) {
	atm := newSmall(t)
	_, err := atm.Evaluator()
	assert.ErrorIs(t, err, ErrNoTextures)

	assert.Panics(t, func() { NewEvaluator(DefaultParameters(), nil) })
	assert.Panics(t, func() { NewEvaluator(DefaultParameters(), &TextureSet{}) })
}

// groundCamera returns a camera 100 m above the WGS84 surface and its ENU
// frame.
func groundCamera() (mgl64.Vec3, mgl64.Mat3) {
	g := geodesy.FromDegrees(10, 45, 100)
	return g.ToECEF(geodesy.WGS84), g.EastNorthUp()
}

func TestSkyAtNoon(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	atm := newSmall(t)
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	camera, enu := groundCamera()
	require.True(t, ev.UpdateCamera(camera))
	up, east := enu.Col(2), enu.Col(0)

	// The corrected camera sits 100 m above the spherical ground.
	r := mgl64.Vec3(ev.ToAtmosphere(camera)).Len()
	assert.InDelta(t, DefaultParameters().BottomRadius+0.1, r, 1e-5)

	var zenith, horizon RadianceSample
	ev.SkyRadiance(camera, up, up, &zenith)
	elevated := east.Add(up.Mul(math.Tan(mgl64.DegToRad(1)))).Normalize()
	ev.SkyRadiance(camera, elevated, up, &horizon)

	assert.Greater(t, zenith.Radiance[2], zenith.Radiance[0], "zenith sky must be blue")
	assert.Greater(t, zenith.Radiance[2], 0.0)
	for c := range 3 {
		assert.Greater(t, zenith.Transmittance[c], horizon.Transmittance[c], "channel %d", c)
		assert.LessOrEqual(t, zenith.Transmittance[c], 1.0)
	}
}

func TestAerialPerspective(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	atm := newSmall(t)
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	camera, enu := groundCamera()
	require.True(t, ev.UpdateCamera(camera))
	up, east := enu.Col(2), enu.Col(0)
	sun := east.Add(up).Normalize()
	dir := east.Add(up.Mul(0.1)).Normalize()

	var near, far RadianceSample
	ev.AerialPerspective(camera, dir, 1000, sun, &near)
	ev.AerialPerspective(camera, dir, 20000, sun, &far)
	for c := range 3 {
		assert.GreaterOrEqual(t, near.Radiance[c], 0.0)
		assert.Greater(t, far.Radiance[c], near.Radiance[c], "channel %d", c)
		assert.Less(t, far.Transmittance[c], near.Transmittance[c], "channel %d", c)
		assert.LessOrEqual(t, near.Transmittance[c], 1.0)
	}

	var same RadianceSample
	ev.AerialPerspective(camera, dir, 0, sun, &same)
	assert.Equal(t, RadianceSample{Transmittance: Spectrum{1, 1, 1}}, same)
}

func TestSunAndSkyIrradiance(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	atm := newSmall(t)
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	camera, enu := groundCamera()
	require.True(t, ev.UpdateCamera(camera))
	up := enu.Col(2)

	var noon, night IrradianceSample
	ev.SunAndSkyIrradiance(camera, up, up, &noon)
	ev.SunAndSkyIrradiance(camera, up, up.Mul(-1), &night)
	for c := range 3 {
		assert.Greater(t, noon.Sun[c], noon.Sky[c])
		assert.Greater(t, noon.Sky[c], 0.0)
		assert.Equal(t, 0.0, night.Sun[c])
	}

	solar := ev.SolarRadiance()
	p := ev.Parameters()
	assert.InEpsilon(t, p.SolarIrradiance[1]/(math.Pi*p.SunAngularRadius*p.SunAngularRadius), solar[1], 1e-12)
}

func TestAltitudeCorrectionDisabled(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	atm := newSmall(t, WithAltitudeCorrection(false))
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	camera, _ := groundCamera()
	assert.True(t, ev.UpdateCamera(camera))
	assert.Equal(t, mgl64.Vec3{}, ev.Offset())
	assert.InDelta(t, camera.Len()/1000, mgl64.Vec3(ev.ToAtmosphere(camera)).Len(), 1e-9)
}

func TestUpdateCameraDegenerate(t *testing.T) {
	base, err := smallSet()
	require.NoError(t, err)
	atm := newSmall(t)
	require.NoError(t, atm.Load(base))
	ev, err := atm.Evaluator()
	require.NoError(t, err)

	camera, _ := groundCamera()
	require.True(t, ev.UpdateCamera(camera))
	offset := ev.Offset()
	assert.False(t, ev.UpdateCamera(mgl64.Vec3{}))
	assert.Equal(t, offset, ev.Offset(), "a degenerate camera keeps the previous correction")
}

func TestHalfFloatMatchesFullFloat(t *testing.T) {
	full, err := smallSet()
	require.NoError(t, err)
	files, err := loader.Encode(full, true)
	require.NoError(t, err)
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: data}
	}
	half, err := loader.LoadFS(context.Background(), fsys)
	require.NoError(t, err)

	camera, enu := groundCamera()
	up, east := enu.Col(2), enu.Col(0)
	sun := east.Add(up.Mul(2)).Normalize()
	evFull := NewEvaluator(DefaultParameters(), full)
	evHalf := NewEvaluator(DefaultParameters(), half)
	evFull.altitudeCorrection, evHalf.altitudeCorrection = true, true
	require.True(t, evFull.UpdateCamera(camera))
	require.True(t, evHalf.UpdateCamera(camera))

	for _, dir := range []mgl64.Vec3{up, east.Add(up).Normalize(), up.Add(east.Mul(0.2)).Normalize()} {
		var a, b RadianceSample
		evFull.SkyRadiance(camera, dir, sun, &a)
		evHalf.SkyRadiance(camera, dir, sun, &b)
		for c := range 3 {
			assert.InEpsilon(t, a.Radiance[c], b.Radiance[c], 1e-3)
			assert.InEpsilon(t, a.Transmittance[c], b.Transmittance[c], 1e-3)
		}
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidParameters, ErrSuperseded, ErrNoTextures, ErrDisposed}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v matches %v", a, b)
			}
		}
	}
}
