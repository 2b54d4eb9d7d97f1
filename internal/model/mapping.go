package model

import "math"

// TextureCoordFromUnitRange maps x in [0, 1] to a texture coordinate that
// stays between the centres of the first and last texels, so that the ends of
// the range are sampled exactly.
func TextureCoordFromUnitRange(x float64, size int) float64 {
	n := float64(size)
	return 0.5/n + x*(1-1/n)
}

// UnitRangeFromTextureCoord is the inverse of TextureCoordFromUnitRange.
func UnitRangeFromTextureCoord(u float64, size int) float64 {
	n := float64(size)
	return (u - 0.5/n) / (1 - 1/n)
}

// TransmittanceUV maps (r, mu) to transmittance texture coordinates. The
// mapping is uniform in the distance to the top boundary, which puts more
// texels near the horizon.
func (p *Parameters) TransmittanceUV(res Resolution, r, mu float64) (u, v float64) {
	h := p.horizonDistance()
	rho := SafeSqrt(r*r - p.BottomRadius*p.BottomRadius)
	d := p.DistanceToTopAtmosphereBoundary(r, mu)
	dMin := p.TopRadius - r
	dMax := rho + h
	xMu := (d - dMin) / (dMax - dMin)
	xR := rho / h
	return TextureCoordFromUnitRange(xMu, res.TransmittanceWidth),
		TextureCoordFromUnitRange(xR, res.TransmittanceHeight)
}

// RMuFromTransmittanceUV is the inverse of TransmittanceUV.
func (p *Parameters) RMuFromTransmittanceUV(res Resolution, u, v float64) (r, mu float64) {
	xMu := UnitRangeFromTextureCoord(u, res.TransmittanceWidth)
	xR := UnitRangeFromTextureCoord(v, res.TransmittanceHeight)
	h := p.horizonDistance()
	rho := h * xR
	r = math.Sqrt(rho*rho + p.BottomRadius*p.BottomRadius)
	dMin := p.TopRadius - r
	dMax := rho + h
	d := dMin + xMu*(dMax-dMin)
	if d == 0 {
		return r, 1
	}
	return r, ClampCosine((h*h - rho*rho - d*d) / (2 * r * d))
}

// IrradianceUV maps (r, mu_s) to irradiance texture coordinates.
func (p *Parameters) IrradianceUV(res Resolution, r, muS float64) (u, v float64) {
	xR := (r - p.BottomRadius) / (p.TopRadius - p.BottomRadius)
	xMuS := muS*0.5 + 0.5
	return TextureCoordFromUnitRange(xMuS, res.IrradianceWidth),
		TextureCoordFromUnitRange(xR, res.IrradianceHeight)
}

// RMuSFromIrradianceUV is the inverse of IrradianceUV.
func (p *Parameters) RMuSFromIrradianceUV(res Resolution, u, v float64) (r, muS float64) {
	xMuS := UnitRangeFromTextureCoord(u, res.IrradianceWidth)
	xR := UnitRangeFromTextureCoord(v, res.IrradianceHeight)
	r = p.BottomRadius + xR*(p.TopRadius-p.BottomRadius)
	return r, ClampCosine(2*xMuS - 1)
}

// ScatteringUVWZ maps (r, mu, mu_s, nu) to the 4D scattering coordinates
// (u_nu, u_mu_s, u_mu, u_r). The lower half of the mu axis holds rays that
// hit the ground, the upper half rays that reach the top boundary.
func (p *Parameters) ScatteringUVWZ(res Resolution, r, mu, muS, nu float64, intersectsGround bool) [4]float64 {
	h := p.horizonDistance()
	rho := SafeSqrt(r*r - p.BottomRadius*p.BottomRadius)
	uR := TextureCoordFromUnitRange(rho/h, res.ScatteringR)

	rMu := r * mu
	disc := rMu*rMu - r*r + p.BottomRadius*p.BottomRadius
	var uMu float64
	if intersectsGround {
		d := -rMu - SafeSqrt(disc)
		dMin := r - p.BottomRadius
		dMax := rho
		x := 0.0
		if dMax != dMin {
			x = (d - dMin) / (dMax - dMin)
		}
		uMu = 0.5 - 0.5*TextureCoordFromUnitRange(x, res.ScatteringMu/2)
	} else {
		d := -rMu + SafeSqrt(disc+h*h)
		dMin := p.TopRadius - r
		dMax := rho + h
		uMu = 0.5 + 0.5*TextureCoordFromUnitRange((d-dMin)/(dMax-dMin), res.ScatteringMu/2)
	}

	d := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, muS)
	dMin := p.TopRadius - p.BottomRadius
	dMax := h
	a := (d - dMin) / (dMax - dMin)
	bigD := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, p.MuSMin)
	bigA := (bigD - dMin) / (dMax - dMin)
	uMuS := TextureCoordFromUnitRange(math.Max(1-a/bigA, 0)/(1+a), res.ScatteringMuS)

	uNu := (nu + 1) / 2
	return [4]float64{uNu, uMuS, uMu, uR}
}

// RMuMuSNuFromScatteringUVWZ is the inverse of ScatteringUVWZ.
func (p *Parameters) RMuMuSNuFromScatteringUVWZ(res Resolution, uvwz [4]float64) (r, mu, muS, nu float64, intersectsGround bool) {
	h := p.horizonDistance()
	rho := h * UnitRangeFromTextureCoord(uvwz[3], res.ScatteringR)
	r = math.Sqrt(rho*rho + p.BottomRadius*p.BottomRadius)

	if uvwz[2] < 0.5 {
		dMin := r - p.BottomRadius
		dMax := rho
		d := dMin + (dMax-dMin)*UnitRangeFromTextureCoord(1-2*uvwz[2], res.ScatteringMu/2)
		if d == 0 {
			mu = -1
		} else {
			mu = ClampCosine(-(rho*rho + d*d) / (2 * r * d))
		}
		intersectsGround = true
	} else {
		dMin := p.TopRadius - r
		dMax := rho + h
		d := dMin + (dMax-dMin)*UnitRangeFromTextureCoord(2*uvwz[2]-1, res.ScatteringMu/2)
		if d == 0 {
			mu = 1
		} else {
			mu = ClampCosine((h*h - rho*rho - d*d) / (2 * r * d))
		}
	}

	xMuS := UnitRangeFromTextureCoord(uvwz[1], res.ScatteringMuS)
	dMin := p.TopRadius - p.BottomRadius
	dMax := h
	bigD := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, p.MuSMin)
	bigA := (bigD - dMin) / (dMax - dMin)
	a := (bigA - xMuS*bigA) / (1 + xMuS*bigA)
	d := dMin + math.Min(a, bigA)*(dMax-dMin)
	if d == 0 {
		muS = 1
	} else {
		muS = ClampCosine((h*h - d*d) / (2 * p.BottomRadius * d))
	}

	nu = ClampCosine(uvwz[0]*2 - 1)
	return r, mu, muS, nu, intersectsGround
}

// RMuMuSNuFromScatteringTexel returns the configuration stored at texel
// (x, y, z) of a scattering texture. The 4D (nu, mu_s) pair is unpacked from
// the x axis, and nu is clamped to the range allowed by mu and mu_s.
func (p *Parameters) RMuMuSNuFromScatteringTexel(res Resolution, x, y, z int) (r, mu, muS, nu float64, intersectsGround bool) {
	fx := float64(x) + 0.5
	fragNu := math.Floor(fx / float64(res.ScatteringMuS))
	fragMuS := math.Mod(fx, float64(res.ScatteringMuS))
	uvwz := [4]float64{
		fragNu / float64(res.ScatteringNu-1),
		fragMuS / float64(res.ScatteringMuS),
		(float64(y) + 0.5) / float64(res.ScatteringMu),
		(float64(z) + 0.5) / float64(res.ScatteringR),
	}
	r, mu, muS, nu, intersectsGround = p.RMuMuSNuFromScatteringUVWZ(res, uvwz)
	s := math.Sqrt((1 - mu*mu) * (1 - muS*muS))
	nu = clamp(nu, mu*muS-s, mu*muS+s)
	return r, mu, muS, nu, intersectsGround
}
