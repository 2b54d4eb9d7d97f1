// Package model is the single implementation of the precomputed atmospheric
// scattering model. Every function is pure: lookup tables are reached only
// through the Sampler2D and Sampler3D capabilities, so the precompute
// backends and the runtime evaluator share the same math.
//
// Lengths are in kilometres, angles are expressed by their cosines.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/atmosphere/spectrum"
)

// ErrInvalidParameters is returned by Parameters.Validate.
var ErrInvalidParameters = errors.New("atmosphere: invalid parameters")

// DensityProfileLayer is one layer of a piecewise density profile. Within the
// layer, density at altitude h is
//
//	ExpTerm*exp(ExpScale*h) + LinearTerm*h + ConstantTerm
//
// clamped to [0, 1].
type DensityProfileLayer struct {
	Width        float64 `toml:"width"`
	ExpTerm      float64 `toml:"exp_term"`
	ExpScale     float64 `toml:"exp_scale"`
	LinearTerm   float64 `toml:"linear_term"`
	ConstantTerm float64 `toml:"constant_term"`
}

// DensityProfile is a list of layers ordered by altitude starting at the
// ground. Layer i covers [sum(widths before i), sum(widths up to i)); the last
// layer extends to infinity regardless of its width.
type DensityProfile []DensityProfileLayer

// Density returns the clamped density at the given altitude.
func (p DensityProfile) Density(altitude float64) float64 {
	if len(p) == 0 {
		return 0
	}
	base := 0.0
	for i, l := range p {
		if i == len(p)-1 || altitude < base+l.Width {
			return l.density(altitude)
		}
		base += l.Width
	}
	return 0
}

func (l DensityProfileLayer) density(altitude float64) float64 {
	d := l.ExpTerm*math.Exp(l.ExpScale*altitude) + l.LinearTerm*altitude + l.ConstantTerm
	return clamp(d, 0, 1)
}

// Parameters is the immutable physical description of an atmosphere.
type Parameters struct {
	// SolarIrradiance at the top of the atmosphere.
	SolarIrradiance Spectrum `toml:"solar_irradiance"`
	// SunAngularRadius in radians.
	SunAngularRadius float64 `toml:"sun_angular_radius"`

	BottomRadius float64 `toml:"bottom_radius"`
	TopRadius    float64 `toml:"top_radius"`

	RayleighDensity    DensityProfile `toml:"rayleigh_density"`
	RayleighScattering Spectrum       `toml:"rayleigh_scattering"`

	MieDensity        DensityProfile `toml:"mie_density"`
	MieScattering     Spectrum       `toml:"mie_scattering"`
	MieExtinction     Spectrum       `toml:"mie_extinction"`
	MiePhaseFunctionG float64        `toml:"mie_phase_function_g"`

	// AbsorptionDensity and AbsorptionExtinction describe ozone.
	AbsorptionDensity    DensityProfile `toml:"absorption_density"`
	AbsorptionExtinction Spectrum       `toml:"absorption_extinction"`

	GroundAlbedo Spectrum `toml:"ground_albedo"`

	// MuSMin is the cosine of the largest sun zenith angle for which
	// scattering is precomputed.
	MuSMin float64 `toml:"mu_s_min"`
}

// DefaultParameters returns the reference Earth atmosphere in kilometres.
func DefaultParameters() Parameters {
	return Parameters{
		SolarIrradiance:  Spectrum{1.474, 1.8504, 1.91198},
		SunAngularRadius: 0.004675,
		BottomRadius:     6360,
		TopRadius:        6420,
		RayleighDensity: DensityProfile{
			{},
			{ExpTerm: 1, ExpScale: -1.0 / 8},
		},
		RayleighScattering: Spectrum{0.005802, 0.013558, 0.0331},
		MieDensity: DensityProfile{
			{},
			{ExpTerm: 1, ExpScale: -1.0 / 1.2},
		},
		MieScattering:     Spectrum{0.003996, 0.003996, 0.003996},
		MieExtinction:     Spectrum{0.00444, 0.00444, 0.00444},
		MiePhaseFunctionG: 0.8,
		AbsorptionDensity: DensityProfile{
			{Width: 25, LinearTerm: 1.0 / 15, ConstantTerm: -2.0 / 3},
			{LinearTerm: -1.0 / 15, ConstantTerm: 8.0 / 3},
		},
		AbsorptionExtinction: Spectrum{0.00065, 0.001881, 0.000085},
		GroundAlbedo:         Spectrum{0.1, 0.1, 0.1},
		MuSMin:               math.Cos(120 * math.Pi / 180),
	}
}

// ParametersFromSpectrum derives the RGB parameters from the spectral tables
// of package spectrum.
func ParametersFromSpectrum() Parameters {
	const perKm = 1000
	p := DefaultParameters()
	rgb := func(f func(float64) float64) Spectrum {
		v := spectrum.RGB(f)
		return Spectrum{v[0] * perKm, v[1] * perKm, v[2] * perKm}
	}
	p.SolarIrradiance = Spectrum(spectrum.SolarIrradianceRGB())
	p.RayleighScattering = rgb(spectrum.RayleighScattering)
	p.MieScattering = rgb(spectrum.MieScattering)
	p.MieExtinction = rgb(spectrum.MieExtinction)
	p.AbsorptionExtinction = rgb(spectrum.OzoneExtinction)
	p.RayleighDensity[1].ExpScale = -perKm / spectrum.RayleighScaleHeight
	p.MieDensity[1].ExpScale = -perKm / spectrum.MieScaleHeight
	p.MiePhaseFunctionG = spectrum.MiePhaseFunctionG
	p.GroundAlbedo = Spectrum{spectrum.GroundAlbedo, spectrum.GroundAlbedo, spectrum.GroundAlbedo}
	return p
}

// Validate checks the invariants of the description.
func (p *Parameters) Validate() error {
	if !(p.BottomRadius > 0) || !(p.BottomRadius < p.TopRadius) {
		return fmt.Errorf("%w: bottom radius %v must be positive and below top radius %v",
			ErrInvalidParameters, p.BottomRadius, p.TopRadius)
	}
	if !(p.MiePhaseFunctionG > -1 && p.MiePhaseFunctionG < 1) {
		return fmt.Errorf("%w: mie phase function g %v outside (-1, 1)", ErrInvalidParameters, p.MiePhaseFunctionG)
	}
	if !(p.SunAngularRadius > 0) {
		return fmt.Errorf("%w: sun angular radius %v", ErrInvalidParameters, p.SunAngularRadius)
	}
	if p.MuSMin < -1 || p.MuSMin >= 1 {
		return fmt.Errorf("%w: mu_s_min %v outside [-1, 1)", ErrInvalidParameters, p.MuSMin)
	}
	profiles := []struct {
		name string
		p    DensityProfile
	}{
		{"rayleigh", p.RayleighDensity},
		{"mie", p.MieDensity},
		{"absorption", p.AbsorptionDensity},
	}
	for _, pr := range profiles {
		if len(pr.p) == 0 {
			return fmt.Errorf("%w: empty %s density profile", ErrInvalidParameters, pr.name)
		}
		for i, l := range pr.p {
			if !(l.Width >= 0) {
				return fmt.Errorf("%w: %s layer %d has negative width %v", ErrInvalidParameters, pr.name, i, l.Width)
			}
		}
	}
	coefficients := []struct {
		name string
		s    Spectrum
	}{
		{"solar irradiance", p.SolarIrradiance},
		{"rayleigh scattering", p.RayleighScattering},
		{"mie scattering", p.MieScattering},
		{"mie extinction", p.MieExtinction},
		{"absorption extinction", p.AbsorptionExtinction},
		{"ground albedo", p.GroundAlbedo},
	}
	for _, c := range coefficients {
		for _, v := range c.s {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: %s %v", ErrInvalidParameters, c.name, c.s)
			}
		}
	}
	return nil
}
