package model

// Texel kernels evaluate one texel of a precomputed table, the way a fragment
// shader invocation would at the texel centre.

// TransmittanceTexel evaluates texel (x, y) of the transmittance table.
func (p *Parameters) TransmittanceTexel(res Resolution, x, y int) Spectrum {
	u := (float64(x) + 0.5) / float64(res.TransmittanceWidth)
	v := (float64(y) + 0.5) / float64(res.TransmittanceHeight)
	r, mu := p.RMuFromTransmittanceUV(res, u, v)
	return p.TransmittanceToTopAtmosphereBoundary(r, mu)
}

// DirectIrradianceTexel evaluates texel (x, y) of the direct irradiance table.
func (p *Parameters) DirectIrradianceTexel(res Resolution, t Sampler2D, x, y int) Spectrum {
	r, muS := p.irradianceTexel(res, x, y)
	return p.DirectIrradiance(res, t, r, muS)
}

// IndirectIrradianceTexel evaluates texel (x, y) of the irradiance due to the
// given scattering order.
func (p *Parameters) IndirectIrradianceTexel(res Resolution, tb *ScatteringTables, x, y, order int) Spectrum {
	r, muS := p.irradianceTexel(res, x, y)
	return p.IndirectIrradiance(res, tb, r, muS, order)
}

func (p *Parameters) irradianceTexel(res Resolution, x, y int) (r, muS float64) {
	u := (float64(x) + 0.5) / float64(res.IrradianceWidth)
	v := (float64(y) + 0.5) / float64(res.IrradianceHeight)
	return p.RMuSFromIrradianceUV(res, u, v)
}

// SingleScatteringTexel evaluates texel (x, y, z) of the single scattering
// tables.
func (p *Parameters) SingleScatteringTexel(res Resolution, t Sampler2D, x, y, z int) (rayleigh, mie Spectrum) {
	r, mu, muS, nu, ground := p.RMuMuSNuFromScatteringTexel(res, x, y, z)
	return p.SingleScattering(res, t, r, mu, muS, nu, ground)
}

// ScatteringDensityTexel evaluates texel (x, y, z) of the scattering density
// table for the given order.
func (p *Parameters) ScatteringDensityTexel(res Resolution, tb *ScatteringTables, x, y, z, order int) Spectrum {
	r, mu, muS, nu, _ := p.RMuMuSNuFromScatteringTexel(res, x, y, z)
	return p.ScatteringDensity(res, tb, r, mu, muS, nu, order)
}

// MultipleScatteringTexel evaluates texel (x, y, z) of the multiple scattering
// table and returns the scattering cosine of the texel, needed to divide out
// the Rayleigh phase function when accumulating.
func (p *Parameters) MultipleScatteringTexel(res Resolution, t Sampler2D, density Sampler3D, x, y, z int) (Spectrum, float64) {
	r, mu, muS, nu, ground := p.RMuMuSNuFromScatteringTexel(res, x, y, z)
	return p.MultipleScattering(res, t, density, r, mu, muS, nu, ground), nu
}
