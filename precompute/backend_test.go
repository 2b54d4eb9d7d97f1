package precompute_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/precompute/nodegraph"
	"github.com/gogpu/atmosphere/precompute/raster"
	"github.com/gogpu/atmosphere/render"
)

func smallConfig(combined bool) precompute.Config {
	return precompute.Config{
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
		ScatteringOrders:   3,
		CombinedScattering: combined,
	}
}

func assertTablesEqual(t *testing.T, name string, want, got []float32) {
	t.Helper()
	require.Equal(t, len(want), len(got), name)
	for i := range want {
		tol := 1e-6 * math.Max(1, math.Abs(float64(want[i])))
		if math.Abs(float64(want[i]-got[i])) > tol {
			t.Fatalf("%s[%d]: raster %v, nodegraph %v", name, i, want[i], got[i])
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	for _, combined := range []bool{false, true} {
		cfg := smallConfig(combined)
		params := model.DefaultParameters()

		a, err := precompute.Run(context.Background(), raster.New(2), params, cfg)
		require.NoError(t, err)
		b, err := precompute.Run(context.Background(), nodegraph.New(2), params, cfg)
		require.NoError(t, err)

		arts := b.Artifacts()
		for i, art := range a.Artifacts() {
			assertTablesEqual(t, art.Name, art.Data, arts[i].Data)
		}
		assert.Equal(t, combined, a.Combined())
	}
}

func TestPrecomputedTablesArePhysical(t *testing.T) {
	set, err := precompute.Run(context.Background(), raster.New(0), model.DefaultParameters(), smallConfig(false))
	require.NoError(t, err)

	for i, v := range set.Transmittance.Data {
		if v < 0 || v > 1 {
			t.Fatalf("transmittance[%d] = %v, want [0,1]", i, v)
		}
	}
	for _, art := range set.Artifacts() {
		for i, v := range art.Data {
			if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("%s[%d] = %v, want finite and non-negative", art.Name, i, v)
			}
		}
	}

	// Multiple scattering adds light: the published table exceeds single
	// scattering alone.
	single, err := precompute.Run(context.Background(), raster.New(0), model.DefaultParameters(),
		func() precompute.Config { c := smallConfig(false); c.ScatteringOrders = 1; return c }())
	require.NoError(t, err)
	var sumMulti, sumSingle float64
	for i := range set.Scattering.Data {
		sumMulti += float64(set.Scattering.Data[i])
		sumSingle += float64(single.Scattering.Data[i])
	}
	assert.Greater(t, sumMulti, sumSingle)

	var irr float64
	for _, v := range set.Irradiance.Data {
		irr += float64(v)
	}
	assert.Greater(t, irr, 0.0, "indirect irradiance accumulated")
}

func TestBackendRequirements(t *testing.T) {
	plan, err := precompute.BuildPlan(model.DefaultParameters(), smallConfig(false))
	require.NoError(t, err)

	caps := render.SoftwareCapabilities()
	caps.MaxColorAttachments = 2
	var capErr *render.CapabilityError
	require.ErrorAs(t, raster.New(1).Require(caps, plan), &capErr)
	assert.Equal(t, render.FeatureMultipleRenderTargets, capErr.Feature)

	caps = render.SoftwareCapabilities()
	caps.SupportsCompute = false
	require.ErrorAs(t, nodegraph.New(1).Require(caps, plan), &capErr)
	assert.Equal(t, render.FeatureCompute, capErr.Feature)

	assert.NoError(t, raster.New(1).Require(render.SoftwareCapabilities(), plan))
	assert.NoError(t, nodegraph.New(1).Require(render.SoftwareCapabilities(), plan))
}

func TestRegisteredBackends(t *testing.T) {
	assert.Contains(t, precompute.Available(), precompute.BackendRaster)
	assert.Contains(t, precompute.Available(), precompute.BackendNodeGraph)
	require.NotNil(t, precompute.Default())
	assert.Equal(t, precompute.BackendRaster, precompute.Default().Name())
}

func TestBackendCancellation(t *testing.T) {
	for _, b := range []precompute.Backend{raster.New(1), nodegraph.New(1)} {
		plan, err := precompute.BuildPlan(model.DefaultParameters(), smallConfig(false))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = b.Execute(ctx, plan)
		assert.ErrorIs(t, err, context.Canceled, b.Name())
	}
}
