package texture

import "github.com/chewxy/math32"

// DecodeOctNormal unpacks an octahedron-encoded normal stored as two integers
// in [0, rangeMax] into out and returns it.
//
// The pair (0, 0) is the sentinel for an unset normal and decodes to the zero
// vector.
func DecodeOctNormal(x, y, rangeMax int, out *[3]float32) *[3]float32 {
	if x == 0 && y == 0 {
		*out = [3]float32{}
		return out
	}
	vx := fromSNorm(x, rangeMax)
	vy := fromSNorm(y, rangeMax)
	vz := 1 - (math32.Abs(vx) + math32.Abs(vy))
	if vz < 0 {
		// Lower hemisphere: undo the fold over the diagonals.
		ox := vx
		vx = (1 - math32.Abs(vy)) * signNotZero(ox)
		vy = (1 - math32.Abs(ox)) * signNotZero(vy)
	}
	l := math32.Sqrt(vx*vx + vy*vy + vz*vz)
	*out = [3]float32{vx / l, vy / l, vz / l}
	return out
}

// EncodeOctNormal packs a unit vector into two integers in [0, rangeMax].
// The zero vector encodes to the (0, 0) sentinel. Directions that would
// quantize onto the sentinel, all within one step of the -Z pole, encode as
// (rangeMax, rangeMax), which decodes to the pole.
func EncodeOctNormal(v [3]float32, rangeMax int) (x, y int) {
	l1 := math32.Abs(v[0]) + math32.Abs(v[1]) + math32.Abs(v[2])
	if l1 == 0 {
		return 0, 0
	}
	px := v[0] / l1
	py := v[1] / l1
	if v[2] < 0 {
		ox := px
		px = (1 - math32.Abs(py)) * signNotZero(ox)
		py = (1 - math32.Abs(ox)) * signNotZero(py)
	}
	x, y = toSNorm(px, rangeMax), toSNorm(py, rangeMax)
	if x == 0 && y == 0 {
		return rangeMax, rangeMax
	}
	return x, y
}

func fromSNorm(v, rangeMax int) float32 {
	v = min(max(v, 0), rangeMax)
	return float32(v)/float32(rangeMax)*2 - 1
}

func toSNorm(v float32, rangeMax int) int {
	v = min(max(v, -1), 1)
	return int(math32.Floor((v*0.5+0.5)*float32(rangeMax) + 0.5))
}

func signNotZero(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
