package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/gogpu/atmosphere"
	"github.com/gogpu/atmosphere/loader"
	"github.com/gogpu/atmosphere/texture"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigOverrides(t *testing.T) {
	data := []byte(`
backend = "nodegraph"
orders = 2
half_float = true

[resolution]
scattering_nu = 4

[parameters]
mie_phase_function_g = 0.76
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "nodegraph", cfg.Backend)
	assert.Equal(t, 2, cfg.Orders)
	assert.True(t, cfg.HalfFloat)
	assert.Equal(t, 4, cfg.Resolution.ScatteringNu)
	assert.Equal(t, atmosphere.DefaultResolution().ScatteringMu, cfg.Resolution.ScatteringMu)
	assert.InDelta(t, 0.76, cfg.Parameters.MiePhaseFunctionG, 1e-12)
	assert.Equal(t, atmosphere.DefaultParameters().BottomRadius, cfg.Parameters.BottomRadius)
}

func TestParseConfigSpectralPreset(t *testing.T) {
	cfg, err := ParseConfig([]byte(`preset = "spectral"`))
	require.NoError(t, err)
	assert.Equal(t, atmosphere.NewParametersFromSpectrum(), cfg.Parameters)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `orders = `},
		{"unknown preset", `preset = "mars"`},
		{"invalid parameters", "[parameters]\ntop_radius = 1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPreviewImage(t *testing.T) {
	tex := texture.NewTexture2D(2, 2)
	tex.SetTexel(0, 0, [4]float32{2, 1, 0, 9})
	tex.SetTexel(1, 1, [4]float32{-1, 4, 0, 0})

	im := previewImage(tex)
	// Texel row 0 is the bottom image row.
	c := im.NRGBA64At(0, 1)
	assert.Equal(t, uint16(0x8000), c.R)
	assert.Equal(t, uint16(0x4000), c.G)
	assert.Equal(t, uint16(0xffff), c.A)

	c = im.NRGBA64At(1, 0)
	assert.Equal(t, uint16(0), c.R)
	assert.Equal(t, uint16(0xffff), c.G)
}

func TestEncodePreviewRoundTrip(t *testing.T) {
	tex := texture.NewTexture2D(8, 4)
	for i := range tex.Data {
		tex.Data[i] = float32(i % 7)
	}
	var buf bytes.Buffer
	require.NoError(t, encodePreview(&buf, tex))

	im, err := tiff.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, im.Bounds().Dx())
	assert.Equal(t, 4, im.Bounds().Dy())
}

func TestAtlasColumns(t *testing.T) {
	assert.Equal(t, 1, atlasColumns(1))
	assert.Equal(t, 6, atlasColumns(32))
	assert.Equal(t, 8, atlasColumns(64))
}

func TestRunWritesArtifacts(t *testing.T) {
	if testing.Short() {
		t.Skip("precomputes tables")
	}
	cfg := DefaultConfig()
	cfg.Output = t.TempDir()
	cfg.Orders = 2
	cfg.Previews = true
	cfg.Workers = 2
	cfg.Resolution = atmosphere.Resolution{
		TransmittanceWidth: 32, TransmittanceHeight: 16,
		ScatteringR: 8, ScatteringMu: 32, ScatteringMuS: 8, ScatteringNu: 4,
		IrradianceWidth: 16, IrradianceHeight: 8,
	}
	require.NoError(t, run(context.Background(), &cfg))

	set, err := loader.LoadFS(context.Background(), os.DirFS(cfg.Output))
	require.NoError(t, err)
	assert.Equal(t, cfg.Resolution, set.Resolution)

	for _, name := range []string{"transmittance", "scattering", "single_mie_scattering", "irradiance"} {
		assert.FileExists(t, filepath.Join(cfg.Output, "preview", name+".tiff"))
	}
}
