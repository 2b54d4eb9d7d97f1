package model

import "math"

// ScatteringTables groups the tables read by the scattering integrals. For
// order 1 the single Rayleigh and Mie tables are used (phase functions are
// applied on read); higher orders read Multiple, which already includes them.
type ScatteringTables struct {
	Transmittance  Sampler2D
	SingleRayleigh Sampler3D
	SingleMie      Sampler3D
	Multiple       Sampler3D
	Irradiance     Sampler2D
}

func (p *Parameters) singleScatteringIntegrand(res Resolution, t Sampler2D, r, mu, muS, nu, d float64, intersectsGround bool) (rayleigh, mie Spectrum) {
	rd := p.ClampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muSD := ClampCosine((r*muS + d*nu) / rd)
	tr := p.LookupTransmittance(res, t, r, mu, d, intersectsGround).
		Mul(p.LookupTransmittanceToSun(res, t, rd, muSD))
	altitude := rd - p.BottomRadius
	return tr.Scale(p.RayleighDensity.Density(altitude)), tr.Scale(p.MieDensity.Density(altitude))
}

// SingleScattering integrates single-scattered Rayleigh and Mie radiance
// along the ray (r, mu), without the phase functions.
func (p *Parameters) SingleScattering(res Resolution, t Sampler2D, r, mu, muS, nu float64, intersectsGround bool) (rayleigh, mie Spectrum) {
	dx := p.DistanceToNearestAtmosphereBoundary(r, mu, intersectsGround) / SingleScatteringSamples
	var rSum, mSum Spectrum
	for i := 0; i <= SingleScatteringSamples; i++ {
		di := float64(i) * dx
		ri, mi := p.singleScatteringIntegrand(res, t, r, mu, muS, nu, di, intersectsGround)
		wi := 1.0
		if i == 0 || i == SingleScatteringSamples {
			wi = 0.5
		}
		rSum = rSum.Add(ri.Scale(wi))
		mSum = mSum.Add(mi.Scale(wi))
	}
	rayleigh = rSum.Scale(dx).Mul(p.SolarIrradiance).Mul(p.RayleighScattering)
	mie = mSum.Scale(dx).Mul(p.SolarIrradiance).Mul(p.MieScattering)
	return rayleigh, mie
}

// LookupScattering reads a 4D scattering table, interpolating manually
// between the two nu slices that bracket the configuration.
func (p *Parameters) LookupScattering(res Resolution, s Sampler3D, r, mu, muS, nu float64, intersectsGround bool) [4]float64 {
	uvwz := p.ScatteringUVWZ(res, r, mu, muS, nu, intersectsGround)
	n := float64(res.ScatteringNu)
	texX := uvwz[0] * (n - 1)
	x0 := math.Floor(texX)
	f := texX - x0
	a := s.Sample((x0+uvwz[1])/n, uvwz[2], uvwz[3])
	b := s.Sample((x0+1+uvwz[1])/n, uvwz[2], uvwz[3])
	var out [4]float64
	for i := range out {
		out[i] = a[i]*(1-f) + b[i]*f
	}
	return out
}

// lookupScatteringOrder returns radiance scattered order times, with phase
// functions applied.
func (p *Parameters) lookupScatteringOrder(res Resolution, tb *ScatteringTables, r, mu, muS, nu float64, intersectsGround bool, order int) Spectrum {
	if order == 1 {
		rayleigh := RGB(p.LookupScattering(res, tb.SingleRayleigh, r, mu, muS, nu, intersectsGround))
		mie := RGB(p.LookupScattering(res, tb.SingleMie, r, mu, muS, nu, intersectsGround))
		return rayleigh.Scale(RayleighPhaseFunction(nu)).Add(mie.Scale(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	}
	return RGB(p.LookupScattering(res, tb.Multiple, r, mu, muS, nu, intersectsGround))
}

// LookupIrradiance reads the irradiance table.
func (p *Parameters) LookupIrradiance(res Resolution, t Sampler2D, r, muS float64) Spectrum {
	u, v := p.IrradianceUV(res, r, muS)
	return RGB(t.Sample(u, v))
}

// ScatteringDensity computes the radiance scattered towards -omega at a point
// for the given order, integrating the previous order's radiance and the
// ground-reflected light over the sphere of incident directions. tb.Irradiance
// must hold the previous order's ground irradiance.
func (p *Parameters) ScatteringDensity(res Resolution, tb *ScatteringTables, r, mu, muS, nu float64, order int) Spectrum {
	// Local frame: zenith is +z, the view direction omega lies in the xz plane.
	omega := [3]float64{math.Sqrt(math.Max(1-mu*mu, 0)), 0, mu}
	sunX := 0.0
	if omega[0] != 0 {
		sunX = (nu - mu*muS) / omega[0]
	}
	sunY := math.Sqrt(math.Max(1-sunX*sunX-muS*muS, 0))
	omegaS := [3]float64{sunX, sunY, muS}

	const n = DensitySphereSamples
	dphi := math.Pi / n
	dtheta := math.Pi / n

	altitude := r - p.BottomRadius
	rayleighDensity := p.RayleighDensity.Density(altitude)
	mieDensity := p.MieDensity.Density(altitude)

	var result Spectrum
	for l := range n {
		theta := (float64(l) + 0.5) * dtheta
		cosTheta, sinTheta := math.Cos(theta), math.Sin(theta)
		hitsGround := p.RayIntersectsGround(r, cosTheta)

		var distanceToGround float64
		var transmittanceToGround, groundAlbedo Spectrum
		if hitsGround {
			distanceToGround = p.DistanceToBottomAtmosphereBoundary(r, cosTheta)
			transmittanceToGround = p.LookupTransmittance(res, tb.Transmittance, r, cosTheta, distanceToGround, true)
			groundAlbedo = p.GroundAlbedo
		}

		for m := range 2 * n {
			phi := (float64(m) + 0.5) * dphi
			omegaI := [3]float64{math.Cos(phi) * sinTheta, math.Sin(phi) * sinTheta, cosTheta}
			domegaI := dtheta * dphi * sinTheta

			nu1 := dot(omegaS, omegaI)
			incident := p.lookupScatteringOrder(res, tb, r, omegaI[2], muS, nu1, hitsGround, order-1)

			// Light reflected by the ground point hit in direction omegaI.
			gn := [3]float64{omegaI[0] * distanceToGround, omegaI[1] * distanceToGround, r + omegaI[2]*distanceToGround}
			gn = normalize(gn)
			groundIrradiance := p.LookupIrradiance(res, tb.Irradiance, p.BottomRadius, dot(gn, omegaS))
			incident = incident.Add(transmittanceToGround.Mul(groundAlbedo).Scale(1 / math.Pi).Mul(groundIrradiance))

			nu2 := dot(omega, omegaI)
			scatter := p.RayleighScattering.Scale(rayleighDensity * RayleighPhaseFunction(nu2)).
				Add(p.MieScattering.Scale(mieDensity * MiePhaseFunction(p.MiePhaseFunctionG, nu2)))
			result = result.Add(incident.Mul(scatter).Scale(domegaI))
		}
	}
	return result
}

// MultipleScattering integrates a scattering density table along the ray
// (r, mu), weighted by transmittance from the origin.
func (p *Parameters) MultipleScattering(res Resolution, t Sampler2D, density Sampler3D, r, mu, muS, nu float64, intersectsGround bool) Spectrum {
	dx := p.DistanceToNearestAtmosphereBoundary(r, mu, intersectsGround) / MultiScatteringSamples
	var sum Spectrum
	for i := 0; i <= MultiScatteringSamples; i++ {
		di := float64(i) * dx
		ri := p.ClampRadius(math.Sqrt(di*di + 2*r*mu*di + r*r))
		muI := ClampCosine((r*mu + di) / ri)
		muSI := ClampCosine((r*muS + di*nu) / ri)
		v := RGB(p.LookupScattering(res, density, ri, muI, muSI, nu, intersectsGround)).
			Mul(p.LookupTransmittance(res, t, r, mu, di, intersectsGround)).
			Scale(dx)
		wi := 1.0
		if i == 0 || i == MultiScatteringSamples {
			wi = 0.5
		}
		sum = sum.Add(v.Scale(wi))
	}
	return sum
}

// DirectIrradiance is the irradiance received from the sun at (r, mu_s),
// approximating the visible fraction of the solar disc near the horizon.
func (p *Parameters) DirectIrradiance(res Resolution, t Sampler2D, r, muS float64) Spectrum {
	alpha := p.SunAngularRadius
	var factor float64
	switch {
	case muS < -alpha:
		factor = 0
	case muS > alpha:
		factor = muS
	default:
		factor = (muS + alpha) * (muS + alpha) / (4 * alpha)
	}
	return p.SolarIrradiance.Mul(p.LookupTransmittanceToTop(res, t, r, muS)).Scale(factor)
}

// IndirectIrradiance integrates the given scattering order over the upper
// hemisphere at (r, mu_s).
func (p *Parameters) IndirectIrradiance(res Resolution, tb *ScatteringTables, r, muS float64, order int) Spectrum {
	const n = IrradianceSphereSamples
	dphi := math.Pi / n
	dtheta := math.Pi / n
	omegaS := [3]float64{math.Sqrt(math.Max(1-muS*muS, 0)), 0, muS}

	var result Spectrum
	for j := range n / 2 {
		theta := (float64(j) + 0.5) * dtheta
		cosTheta, sinTheta := math.Cos(theta), math.Sin(theta)
		for i := range 2 * n {
			phi := (float64(i) + 0.5) * dphi
			omega := [3]float64{math.Cos(phi) * sinTheta, math.Sin(phi) * sinTheta, cosTheta}
			domega := dtheta * dphi * sinTheta
			nu := dot(omega, omegaS)
			v := p.lookupScatteringOrder(res, tb, r, omega[2], muS, nu, false, order)
			result = result.Add(v.Scale(omega[2] * domega))
		}
	}
	return result
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func normalize(v [3]float64) [3]float64 {
	l := math.Sqrt(dot(v, v))
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}
