package model

import "math"

// Resolution holds the lookup table sizes. Scattering tables are 4D
// (r, mu, mu_s, nu) stored in 3D textures of size (Nu*MuS) x Mu x R.
type Resolution struct {
	TransmittanceWidth  int `toml:"transmittance_width"`
	TransmittanceHeight int `toml:"transmittance_height"`

	ScatteringR   int `toml:"scattering_r"`
	ScatteringMu  int `toml:"scattering_mu"`
	ScatteringMuS int `toml:"scattering_mu_s"`
	ScatteringNu  int `toml:"scattering_nu"`

	IrradianceWidth  int `toml:"irradiance_width"`
	IrradianceHeight int `toml:"irradiance_height"`
}

// DefaultResolution returns the standard table sizes.
func DefaultResolution() Resolution {
	return Resolution{
		TransmittanceWidth:  256,
		TransmittanceHeight: 64,
		ScatteringR:         32,
		ScatteringMu:        128,
		ScatteringMuS:       32,
		ScatteringNu:        8,
		IrradianceWidth:     64,
		IrradianceHeight:    16,
	}
}

// ScatteringSize returns the 3D texture dimensions of the scattering tables.
func (r Resolution) ScatteringSize() (width, height, depth int) {
	return r.ScatteringNu * r.ScatteringMuS, r.ScatteringMu, r.ScatteringR
}

// Valid reports whether every axis is large enough for the parameterisation:
// Mu must be even because it is split between ground and sky rays, and Nu
// needs two samples to interpolate.
func (r Resolution) Valid() bool {
	return r.TransmittanceWidth > 1 && r.TransmittanceHeight > 1 &&
		r.ScatteringR > 1 && r.ScatteringMu > 3 && r.ScatteringMu%2 == 0 &&
		r.ScatteringMuS > 1 && r.ScatteringNu > 1 &&
		r.IrradianceWidth > 1 && r.IrradianceHeight > 1
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ClampCosine clamps mu to [-1, 1].
func ClampCosine(mu float64) float64 { return clamp(mu, -1, 1) }

// ClampDistance clamps d to be non-negative.
func ClampDistance(d float64) float64 { return math.Max(d, 0) }

// SafeSqrt returns the square root of max(a, 0).
func SafeSqrt(a float64) float64 { return math.Sqrt(math.Max(a, 0)) }

func smoothstep(e0, e1, x float64) float64 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

// ClampRadius clamps r to the atmosphere shell.
func (p *Parameters) ClampRadius(r float64) float64 {
	return clamp(r, p.BottomRadius, p.TopRadius)
}

// DistanceToTopAtmosphereBoundary returns the distance along a ray from radius
// r with zenith cosine mu to the top of the atmosphere.
func (p *Parameters) DistanceToTopAtmosphereBoundary(r, mu float64) float64 {
	disc := r*r*(mu*mu-1) + p.TopRadius*p.TopRadius
	return ClampDistance(-r*mu + SafeSqrt(disc))
}

// DistanceToBottomAtmosphereBoundary returns the distance along a ray from
// radius r with zenith cosine mu to the ground.
func (p *Parameters) DistanceToBottomAtmosphereBoundary(r, mu float64) float64 {
	disc := r*r*(mu*mu-1) + p.BottomRadius*p.BottomRadius
	return ClampDistance(-r*mu - SafeSqrt(disc))
}

// RayIntersectsGround reports whether the ray (r, mu) hits the ground.
func (p *Parameters) RayIntersectsGround(r, mu float64) bool {
	return mu < 0 && r*r*(mu*mu-1)+p.BottomRadius*p.BottomRadius >= 0
}

// DistanceToNearestAtmosphereBoundary returns the distance to the ground when
// the ray hits it, and to the top boundary otherwise.
func (p *Parameters) DistanceToNearestAtmosphereBoundary(r, mu float64, intersectsGround bool) float64 {
	if intersectsGround {
		return p.DistanceToBottomAtmosphereBoundary(r, mu)
	}
	return p.DistanceToTopAtmosphereBoundary(r, mu)
}

// horizonDistance is the distance from the ground horizon to the top boundary.
func (p *Parameters) horizonDistance() float64 {
	return math.Sqrt(p.TopRadius*p.TopRadius - p.BottomRadius*p.BottomRadius)
}

// RayleighPhaseFunction is the Rayleigh phase function for scattering cosine nu.
func RayleighPhaseFunction(nu float64) float64 {
	const k = 3 / (16 * math.Pi)
	return k * (1 + nu*nu)
}

// MiePhaseFunction is the Cornette-Shanks phase function.
func MiePhaseFunction(g, nu float64) float64 {
	k := 3 / (8 * math.Pi) * (1 - g*g) / (2 + g*g)
	return k * (1 + nu*nu) / math.Pow(1+g*g-2*g*nu, 1.5)
}
