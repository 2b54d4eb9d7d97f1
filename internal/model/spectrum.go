package model

import "math"

// Spectrum is a radiometric quantity sampled at the R, G and B wavelengths.
type Spectrum [3]float64

// Uniform returns a spectrum with all channels set to v.
func Uniform(v float64) Spectrum { return Spectrum{v, v, v} }

func (s Spectrum) Add(o Spectrum) Spectrum { return Spectrum{s[0] + o[0], s[1] + o[1], s[2] + o[2]} }
func (s Spectrum) Sub(o Spectrum) Spectrum { return Spectrum{s[0] - o[0], s[1] - o[1], s[2] - o[2]} }
func (s Spectrum) Mul(o Spectrum) Spectrum { return Spectrum{s[0] * o[0], s[1] * o[1], s[2] * o[2]} }
func (s Spectrum) Scale(k float64) Spectrum {
	return Spectrum{s[0] * k, s[1] * k, s[2] * k}
}

// Div divides componentwise. Channels whose divisor is zero yield zero.
func (s Spectrum) Div(o Spectrum) Spectrum {
	var r Spectrum
	for i := range s {
		if o[i] != 0 {
			r[i] = s[i] / o[i]
		}
	}
	return r
}

// Exp returns exp applied componentwise.
func (s Spectrum) Exp() Spectrum {
	return Spectrum{math.Exp(s[0]), math.Exp(s[1]), math.Exp(s[2])}
}

// Min returns the componentwise minimum with k.
func (s Spectrum) Min(k float64) Spectrum {
	return Spectrum{math.Min(s[0], k), math.Min(s[1], k), math.Min(s[2], k)}
}

// RGB returns the first three channels of a texel.
func RGB(v [4]float64) Spectrum { return Spectrum{v[0], v[1], v[2]} }

// Texel packs a spectrum and an alpha value into float32 storage.
func Texel(s Spectrum, a float64) [4]float32 {
	return [4]float32{float32(s[0]), float32(s[1]), float32(s[2]), float32(a)}
}
