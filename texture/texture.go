// Package texture provides CPU-resident float lookup tables with the addressing
// and filtering rules of GPU textures, plus the codecs used to move them
// to and from precomputed artifacts.
//
// Sampling follows the GPU convention: texture coordinates address texel
// edges, texel centres sit at (i+0.5)/size, filtering is linear and the
// address mode is clamp-to-edge.
package texture

import "math"

// Texture2D is an RGBA float32 image.
type Texture2D struct {
	Width  int
	Height int
	// Data is row-major, Channels components per texel.
	Data []float32
}

// NewTexture2D allocates a zeroed texture.
func NewTexture2D(width, height int) *Texture2D {
	return &Texture2D{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height*Channels),
	}
}

// Texels returns the number of texels.
func (t *Texture2D) Texels() int { return t.Width * t.Height }

// Texel returns the value stored at integer coordinates.
func (t *Texture2D) Texel(x, y int) [4]float32 {
	i := (y*t.Width + x) * Channels
	return [4]float32{t.Data[i], t.Data[i+1], t.Data[i+2], t.Data[i+3]}
}

// SetTexel stores v at integer coordinates.
func (t *Texture2D) SetTexel(x, y int, v [4]float32) {
	i := (y*t.Width + x) * Channels
	copy(t.Data[i:i+Channels], v[:])
}

// Sample returns the bilinearly filtered value at normalized coordinates.
func (t *Texture2D) Sample(u, v float64) [4]float64 {
	x0, x1, fx := filterTaps(u, t.Width)
	y0, y1, fy := filterTaps(v, t.Height)

	var out [4]float64
	for c := range Channels {
		a := lerp(t.at(x0, y0, c), t.at(x1, y0, c), fx)
		b := lerp(t.at(x0, y1, c), t.at(x1, y1, c), fx)
		out[c] = lerp(a, b, fy)
	}
	return out
}

func (t *Texture2D) at(x, y, c int) float64 {
	return float64(t.Data[(y*t.Width+x)*Channels+c])
}

// Clone returns a deep copy.
func (t *Texture2D) Clone() *Texture2D {
	c := &Texture2D{Width: t.Width, Height: t.Height, Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// Texture3D is an RGBA float32 volume.
type Texture3D struct {
	Width  int
	Height int
	Depth  int
	// Data is slice-major then row-major, Channels components per texel.
	Data []float32
}

// NewTexture3D allocates a zeroed volume.
func NewTexture3D(width, height, depth int) *Texture3D {
	return &Texture3D{
		Width:  width,
		Height: height,
		Depth:  depth,
		Data:   make([]float32, width*height*depth*Channels),
	}
}

// Texels returns the number of texels.
func (t *Texture3D) Texels() int { return t.Width * t.Height * t.Depth }

// Texel returns the value stored at integer coordinates.
func (t *Texture3D) Texel(x, y, z int) [4]float32 {
	i := ((z*t.Height+y)*t.Width + x) * Channels
	return [4]float32{t.Data[i], t.Data[i+1], t.Data[i+2], t.Data[i+3]}
}

// SetTexel stores v at integer coordinates.
func (t *Texture3D) SetTexel(x, y, z int, v [4]float32) {
	i := ((z*t.Height+y)*t.Width + x) * Channels
	copy(t.Data[i:i+Channels], v[:])
}

// Sample returns the trilinearly filtered value at normalized coordinates.
func (t *Texture3D) Sample(u, v, w float64) [4]float64 {
	x0, x1, fx := filterTaps(u, t.Width)
	y0, y1, fy := filterTaps(v, t.Height)
	z0, z1, fz := filterTaps(w, t.Depth)

	var out [4]float64
	for c := range Channels {
		a := lerp(t.at(x0, y0, z0, c), t.at(x1, y0, z0, c), fx)
		b := lerp(t.at(x0, y1, z0, c), t.at(x1, y1, z0, c), fx)
		lo := lerp(a, b, fy)
		a = lerp(t.at(x0, y0, z1, c), t.at(x1, y0, z1, c), fx)
		b = lerp(t.at(x0, y1, z1, c), t.at(x1, y1, z1, c), fx)
		hi := lerp(a, b, fy)
		out[c] = lerp(lo, hi, fz)
	}
	return out
}

func (t *Texture3D) at(x, y, z, c int) float64 {
	return float64(t.Data[((z*t.Height+y)*t.Width+x)*Channels+c])
}

// Clone returns a deep copy.
func (t *Texture3D) Clone() *Texture3D {
	c := &Texture3D{Width: t.Width, Height: t.Height, Depth: t.Depth, Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// Atlas lays the depth slices out side by side in a 2D texture with the given
// number of columns. Slice z lands in tile (z%columns, z/columns).
func (t *Texture3D) Atlas(columns int) *Texture2D {
	if columns <= 0 {
		columns = t.Depth
	}
	rows := (t.Depth + columns - 1) / columns
	a := NewTexture2D(t.Width*columns, t.Height*rows)
	for z := range t.Depth {
		ox := (z % columns) * t.Width
		oy := (z / columns) * t.Height
		for y := range t.Height {
			src := ((z*t.Height + y) * t.Width) * Channels
			dst := ((oy+y)*a.Width + ox) * Channels
			copy(a.Data[dst:dst+t.Width*Channels], t.Data[src:src+t.Width*Channels])
		}
	}
	return a
}

// FromAtlas is the inverse of Texture3D.Atlas.
func FromAtlas(a *Texture2D, width, height, depth, columns int) *Texture3D {
	t := NewTexture3D(width, height, depth)
	for z := range depth {
		ox := (z % columns) * width
		oy := (z / columns) * height
		for y := range height {
			src := ((oy+y)*a.Width + ox) * Channels
			dst := ((z*height + y) * width) * Channels
			copy(t.Data[dst:dst+width*Channels], a.Data[src:src+width*Channels])
		}
	}
	return t
}

// filterTaps returns the two texel indices and the blend weight for linear
// filtering of normalized coordinate u over n texels, clamped to the edge.
func filterTaps(u float64, n int) (i0, i1 int, f float64) {
	x := u*float64(n) - 0.5
	fl := math.Floor(x)
	f = x - fl
	i0 = int(fl)
	i1 = i0 + 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 < 0 {
		i1 = 0
	}
	if i0 > n-1 {
		i0 = n - 1
	}
	if i1 > n-1 {
		i1 = n - 1
	}
	return i0, i1, f
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// TexelCenter returns the normalized coordinate of the centre of texel i.
func TexelCenter(i, n int) float64 {
	return (float64(i) + 0.5) / float64(n)
}
