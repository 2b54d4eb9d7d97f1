package atmosphere

import (
	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/precompute"
)

// Parameters is the physical description of an atmosphere, in kilometres.
type Parameters = model.Parameters

// DensityProfileLayer is one layer of a density profile.
type DensityProfileLayer = model.DensityProfileLayer

// DensityProfile is a layered density profile, ordered from the ground.
type DensityProfile = model.DensityProfile

// Resolution holds the lookup table sizes.
type Resolution = model.Resolution

// Spectrum is an RGB triple sampled at 680, 550 and 440 nm.
type Spectrum = model.Spectrum

// TextureSet is a published set of lookup tables.
type TextureSet = precompute.TextureSet

// DefaultParameters returns the reference Earth atmosphere.
func DefaultParameters() Parameters { return model.DefaultParameters() }

// NewParametersFromSpectrum returns the Earth atmosphere with coefficients
// derived from the spectral tables of package spectrum.
func NewParametersFromSpectrum() Parameters { return model.ParametersFromSpectrum() }

// DefaultResolution returns the standard table sizes.
func DefaultResolution() Resolution { return model.DefaultResolution() }

// RadianceSample receives the result of a radiance query.
type RadianceSample struct {
	Radiance      Spectrum
	Transmittance Spectrum
}

// IrradianceSample receives the result of an irradiance query.
type IrradianceSample struct {
	Sun Spectrum
	Sky Spectrum
}
