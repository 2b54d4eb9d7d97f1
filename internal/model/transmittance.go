package model

import "math"

// Sample counts of the numerical integrators.
const (
	TransmittanceSamples    = 500
	SingleScatteringSamples = 50
	MultiScatteringSamples  = 50
	DensitySphereSamples    = 16
	IrradianceSphereSamples = 32
)

// MinTransmittance is the divisor below which transmittance ratios are
// treated as fully opaque.
const MinTransmittance = 1e-20

// Sampler2D is a filtered 2D lookup table.
type Sampler2D interface {
	Sample(u, v float64) [4]float64
}

// Sampler3D is a filtered 3D lookup table.
type Sampler3D interface {
	Sample(u, v, w float64) [4]float64
}

// OpticalLengthToTopAtmosphereBoundary integrates a density profile along the
// ray (r, mu) up to the top boundary with the trapezoidal rule.
func (p *Parameters) OpticalLengthToTopAtmosphereBoundary(profile DensityProfile, r, mu float64) float64 {
	return p.opticalLength(profile, r, mu, p.DistanceToTopAtmosphereBoundary(r, mu))
}

func (p *Parameters) opticalLength(profile DensityProfile, r, mu, length float64) float64 {
	dx := length / TransmittanceSamples
	result := 0.0
	for i := 0; i <= TransmittanceSamples; i++ {
		di := float64(i) * dx
		ri := math.Sqrt(di*di + 2*r*mu*di + r*r)
		yi := profile.Density(ri - p.BottomRadius)
		wi := 1.0
		if i == 0 || i == TransmittanceSamples {
			wi = 0.5
		}
		result += yi * wi * dx
	}
	return result
}

func (p *Parameters) extinctionAlong(r, mu, length float64) Spectrum {
	rayleigh := p.RayleighScattering.Scale(p.opticalLength(p.RayleighDensity, r, mu, length))
	mie := p.MieExtinction.Scale(p.opticalLength(p.MieDensity, r, mu, length))
	ozone := p.AbsorptionExtinction.Scale(p.opticalLength(p.AbsorptionDensity, r, mu, length))
	return rayleigh.Add(mie).Add(ozone)
}

// TransmittanceToTopAtmosphereBoundary computes transmittance along (r, mu)
// to the top boundary by numerical integration.
func (p *Parameters) TransmittanceToTopAtmosphereBoundary(r, mu float64) Spectrum {
	return p.extinctionAlong(r, mu, p.DistanceToTopAtmosphereBoundary(r, mu)).Scale(-1).Exp()
}

// TransmittanceAlongSegment computes transmittance over the first d units of
// the ray (r, mu) by numerical integration.
func (p *Parameters) TransmittanceAlongSegment(r, mu, d float64) Spectrum {
	return p.extinctionAlong(r, mu, d).Scale(-1).Exp()
}

// LookupTransmittanceToTop reads the transmittance table.
func (p *Parameters) LookupTransmittanceToTop(res Resolution, t Sampler2D, r, mu float64) Spectrum {
	u, v := p.TransmittanceUV(res, r, mu)
	return RGB(t.Sample(u, v))
}

// LookupTransmittance returns transmittance between the point at radius r and
// the point at distance d along the ray (r, mu). It divides two table values,
// so channels whose divisor falls below MinTransmittance are returned as zero.
func (p *Parameters) LookupTransmittance(res Resolution, t Sampler2D, r, mu, d float64, intersectsGround bool) Spectrum {
	rd := p.ClampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muD := ClampCosine((r*mu + d) / rd)

	var num, den Spectrum
	if intersectsGround {
		num = p.LookupTransmittanceToTop(res, t, rd, -muD)
		den = p.LookupTransmittanceToTop(res, t, r, -mu)
	} else {
		num = p.LookupTransmittanceToTop(res, t, r, mu)
		den = p.LookupTransmittanceToTop(res, t, rd, muD)
	}
	return divideTransmittance(num, den)
}

func divideTransmittance(num, den Spectrum) Spectrum {
	var out Spectrum
	for i := range out {
		if den[i] > MinTransmittance {
			out[i] = math.Min(num[i]/den[i], 1)
		}
	}
	return out
}

// LookupTransmittanceToSun returns transmittance towards the sun, faded by
// the visible fraction of the solar disc above the horizon.
func (p *Parameters) LookupTransmittanceToSun(res Resolution, t Sampler2D, r, muS float64) Spectrum {
	sinThetaH := p.BottomRadius / r
	cosThetaH := -math.Sqrt(math.Max(1-sinThetaH*sinThetaH, 0))
	k := p.SunAngularRadius * sinThetaH
	return p.LookupTransmittanceToTop(res, t, r, muS).Scale(smoothstep(-k, k, muS-cosThetaH))
}
