// Package spectrum holds the spectral constants of the reference Earth
// atmosphere and the helpers that reduce them to the three wavelengths used by
// the RGB scattering model.
//
// Tables are sampled every 10 nm from 360 nm to 830 nm. Values follow the
// measurements commonly used for precomputed atmospheric scattering: the
// extraterrestrial solar spectrum (W m^-2 nm^-1) and the ozone absorption
// cross section (m^2 per molecule).
package spectrum

import "math"

// Wavelength range of the tables, in nanometres.
const (
	LambdaMin  = 360.0
	LambdaMax  = 830.0
	LambdaStep = 10.0
)

// Wavelengths of the R, G and B channels of the RGB model, in nanometres.
const (
	LambdaR = 680.0
	LambdaG = 550.0
	LambdaB = 440.0
)

// Physical constants of the reference atmosphere, in SI units.
const (
	// DobsonUnit is the number of ozone molecules per square metre in one
	// Dobson unit.
	DobsonUnit = 2.687e20

	// MaxOzoneNumberDensity is the peak ozone number density (molecules/m^3)
	// for a 300 DU column concentrated in a 15 km thick layer.
	MaxOzoneNumberDensity = 300.0 * DobsonUnit / 15000.0

	// Rayleigh is the Rayleigh scattering coefficient at 1 µm (m^-1).
	Rayleigh = 1.24062e-6

	RayleighScaleHeight = 8000.0
	MieScaleHeight      = 1200.0

	// Angstrom turbidity parameters of the aerosol model.
	MieAngstromAlpha = 0.0
	MieAngstromBeta  = 5.328e-3

	MieSingleScatteringAlbedo = 0.9
	MiePhaseFunctionG         = 0.8
	GroundAlbedo              = 0.1
)

// SolarIrradiance is the extraterrestrial solar spectral irradiance.
var SolarIrradiance = [48]float64{
	1.11776, 1.14259, 1.01249, 1.14716, 1.72765, 1.73054, 1.6887, 1.61253,
	1.91198, 2.03474, 2.02042, 2.02212, 1.93377, 1.95809, 1.91686, 1.8298,
	1.8685, 1.8931, 1.85149, 1.8504, 1.8341, 1.8345, 1.8147, 1.78158, 1.7533,
	1.6965, 1.68194, 1.64654, 1.6048, 1.52143, 1.55622, 1.5113, 1.474, 1.4482,
	1.41018, 1.36775, 1.34188, 1.31429, 1.28303, 1.26758, 1.2367, 1.2082,
	1.18737, 1.14683, 1.12362, 1.1058, 1.07124, 1.04992,
}

// OzoneCrossSection is the ozone absorption cross section.
var OzoneCrossSection = [48]float64{
	1.18e-27, 2.182e-28, 2.818e-28, 6.636e-28, 1.527e-27, 2.763e-27, 5.52e-27,
	8.451e-27, 1.582e-26, 2.316e-26, 3.669e-26, 4.924e-26, 7.752e-26, 9.016e-26,
	1.48e-25, 1.602e-25, 2.139e-25, 2.755e-25, 3.091e-25, 3.5e-25, 4.266e-25,
	4.672e-25, 4.398e-25, 4.701e-25, 5.019e-25, 4.305e-25, 3.74e-25, 3.215e-25,
	2.662e-25, 2.238e-25, 1.852e-25, 1.473e-25, 1.209e-25, 9.423e-26, 7.455e-26,
	6.566e-26, 5.105e-26, 4.15e-26, 4.228e-26, 3.237e-26, 2.451e-26, 2.801e-26,
	2.534e-26, 1.624e-26, 1.465e-26, 2.078e-26, 1.383e-26, 7.105e-27,
}

// Wavelengths returns the sample wavelengths of the tables, in nanometres.
func Wavelengths() []float64 {
	n := len(SolarIrradiance)
	out := make([]float64, n)
	for i := range out {
		out[i] = LambdaMin + float64(i)*LambdaStep
	}
	return out
}

// Interpolate linearly interpolates a 10 nm table at the given wavelength.
// Wavelengths outside the table return the nearest end value.
func Interpolate(table []float64, lambda float64) float64 {
	if len(table) == 0 {
		return 0
	}
	x := (lambda - LambdaMin) / LambdaStep
	if x <= 0 {
		return table[0]
	}
	last := len(table) - 1
	if x >= float64(last) {
		return table[last]
	}
	i := int(x)
	f := x - float64(i)
	return table[i]*(1-f) + table[i+1]*f
}

// RayleighScattering returns the Rayleigh scattering coefficient (m^-1) at the
// given wavelength in nanometres.
func RayleighScattering(lambda float64) float64 {
	um := lambda * 1e-3
	return Rayleigh * math.Pow(um, -4)
}

// MieExtinction returns the aerosol extinction coefficient (m^-1) at the given
// wavelength in nanometres.
func MieExtinction(lambda float64) float64 {
	um := lambda * 1e-3
	return MieAngstromBeta / MieScaleHeight * math.Pow(um, -MieAngstromAlpha)
}

// MieScattering returns the aerosol scattering coefficient (m^-1).
func MieScattering(lambda float64) float64 {
	return MieExtinction(lambda) * MieSingleScatteringAlbedo
}

// OzoneExtinction returns the peak ozone absorption coefficient (m^-1).
func OzoneExtinction(lambda float64) float64 {
	return MaxOzoneNumberDensity * Interpolate(OzoneCrossSection[:], lambda)
}

// RGB samples a spectral function at LambdaR, LambdaG and LambdaB.
func RGB(f func(lambda float64) float64) [3]float64 {
	return [3]float64{f(LambdaR), f(LambdaG), f(LambdaB)}
}

// SolarIrradianceRGB returns the solar irradiance at the RGB wavelengths.
func SolarIrradianceRGB() [3]float64 {
	return RGB(func(l float64) float64 { return Interpolate(SolarIrradiance[:], l) })
}
