package model

import "math"

// Tables are the precomputed tables read at render time. SingleMie is nil
// when single Mie scattering is packed into the alpha channel of Scattering.
type Tables struct {
	Transmittance Sampler2D
	Scattering    Sampler3D
	SingleMie     Sampler3D
	Irradiance    Sampler2D
}

// Vec3 is a position or direction in the atmosphere frame, whose origin is
// the planet centre.
type Vec3 = [3]float64

// ExtrapolatedSingleMie reconstructs single Mie scattering from a combined
// texel, whose alpha channel stores its red component.
func (p *Parameters) ExtrapolatedSingleMie(v [4]float64) Spectrum {
	if v[0] <= 0 {
		return Spectrum{}
	}
	k := v[3] / v[0] * (p.RayleighScattering[0] / p.MieScattering[0])
	return RGB(v).Scale(k).Mul(p.MieScattering.Div(p.RayleighScattering))
}

// CombinedScattering returns Rayleigh+multiple scattering and single Mie
// scattering for a configuration.
func (p *Parameters) CombinedScattering(res Resolution, tb *Tables, r, mu, muS, nu float64, intersectsGround bool) (scattering, singleMie Spectrum) {
	v := p.LookupScattering(res, tb.Scattering, r, mu, muS, nu, intersectsGround)
	if tb.SingleMie == nil {
		return RGB(v), p.ExtrapolatedSingleMie(v)
	}
	return RGB(v), RGB(p.LookupScattering(res, tb.SingleMie, r, mu, muS, nu, intersectsGround))
}

// SkyRadiance returns the radiance and transmittance of the view ray from
// camera in direction viewRay (unit), lit from direction sun (unit).
// Cameras outside the atmosphere are first moved to the top boundary.
func (p *Parameters) SkyRadiance(res Resolution, tb *Tables, camera, viewRay, sun Vec3) (radiance, transmittance Spectrum) {
	r := length(camera)
	rMu := dot(camera, viewRay)
	distanceToTop := -rMu - math.Sqrt(rMu*rMu-r*r+p.TopRadius*p.TopRadius)
	if distanceToTop > 0 {
		camera = add(camera, scale(viewRay, distanceToTop))
		r = p.TopRadius
		rMu += distanceToTop
	} else if r > p.TopRadius {
		// Ray in space.
		return Spectrum{}, Uniform(1)
	}

	mu := rMu / r
	muS := dot(camera, sun) / r
	nu := dot(viewRay, sun)
	ground := p.RayIntersectsGround(r, mu)

	if !ground {
		transmittance = p.LookupTransmittanceToTop(res, tb.Transmittance, r, mu)
	}
	scattering, singleMie := p.CombinedScattering(res, tb, r, mu, muS, nu, ground)
	radiance = scattering.Scale(RayleighPhaseFunction(nu)).
		Add(singleMie.Scale(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	return radiance, transmittance
}

// SkyRadianceToPoint returns the in-scattered radiance and transmittance
// between camera and point. The scattering at point is subtracted from the
// scattering at the camera after attenuation by the camera-to-point
// transmittance.
func (p *Parameters) SkyRadianceToPoint(res Resolution, tb *Tables, camera, point, sun Vec3) (radiance, transmittance Spectrum) {
	delta := sub(point, camera)
	d := length(delta)
	if d == 0 {
		return Spectrum{}, Uniform(1)
	}
	viewRay := scale(delta, 1/d)

	r := length(camera)
	rMu := dot(camera, viewRay)
	distanceToTop := -rMu - math.Sqrt(rMu*rMu-r*r+p.TopRadius*p.TopRadius)
	if distanceToTop > 0 {
		camera = add(camera, scale(viewRay, distanceToTop))
		r = p.TopRadius
		rMu += distanceToTop
		d -= distanceToTop
		if d <= 0 {
			return Spectrum{}, Uniform(1)
		}
	}

	mu := rMu / r
	muS := dot(camera, sun) / r
	nu := dot(viewRay, sun)
	ground := p.RayIntersectsGround(r, mu)

	transmittance = p.LookupTransmittance(res, tb.Transmittance, r, mu, d, ground)

	scattering, singleMie := p.CombinedScattering(res, tb, r, mu, muS, nu, ground)

	rP, muP, muSP := p.pointCosines(r, mu, muS, nu, d)
	scatteringP, singleMieP := p.CombinedScattering(res, tb, rP, muP, muSP, nu, ground)

	scattering = scattering.Sub(transmittance.Mul(scatteringP))
	singleMie = singleMie.Sub(transmittance.Mul(singleMieP))
	if tb.SingleMie == nil {
		singleMie = p.ExtrapolatedSingleMie([4]float64{scattering[0], scattering[1], scattering[2], singleMie[0]})
	}
	// Fade single Mie out below the horizon to hide precision artifacts.
	singleMie = singleMie.Scale(smoothstep(0, 0.01, muS))

	radiance = scattering.Scale(RayleighPhaseFunction(nu)).
		Add(singleMie.Scale(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	return clampNonNegative(radiance), transmittance
}

// pointCosines returns the radius and the view and sun zenith cosines at
// distance d along the view ray.
func (p *Parameters) pointCosines(r, mu, muS, nu, d float64) (rP, muP, muSP float64) {
	rP = p.ClampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muP = ClampCosine((r*mu + d) / rP)
	muSP = ClampCosine((r*muS + d*nu) / rP)
	return rP, muP, muSP
}

// SunAndSkyIrradiance returns the irradiance received by a surface at point
// with the given unit normal, split into direct sun and sky contributions.
func (p *Parameters) SunAndSkyIrradiance(res Resolution, tb *Tables, point, normal, sun Vec3) (sunIrradiance, skyIrradiance Spectrum) {
	r := length(point)
	muS := dot(point, sun) / r

	// Approximates the visible fraction of the sky for a tilted surface.
	skyIrradiance = p.LookupIrradiance(res, tb.Irradiance, r, muS).
		Scale((1 + dot(normal, point)/r) * 0.5)

	sunIrradiance = p.SolarIrradiance.
		Mul(p.LookupTransmittanceToSun(res, tb.Transmittance, r, muS)).
		Scale(math.Max(dot(normal, sun), 0))
	return sunIrradiance, skyIrradiance
}

// SolarRadiance returns the radiance of the solar disc outside the atmosphere.
func (p *Parameters) SolarRadiance() Spectrum {
	return p.SolarIrradiance.Scale(1 / (math.Pi * p.SunAngularRadius * p.SunAngularRadius))
}

func clampNonNegative(s Spectrum) Spectrum {
	return Spectrum{math.Max(s[0], 0), math.Max(s[1], 0), math.Max(s[2], 0)}
}

func length(v Vec3) float64 { return math.Sqrt(dot(v, v)) }

func add(a, b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }

func sub(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func scale(v Vec3, k float64) Vec3 { return Vec3{v[0] * k, v[1] * k, v[2] * k} }
