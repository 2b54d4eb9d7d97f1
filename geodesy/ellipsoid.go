// Package geodesy places cameras and the sun relative to an ellipsoidal
// planet: surface normals, projection onto the surface, osculating spheres
// and conversion between geodetic and Earth-centred Earth-fixed (ECEF)
// coordinates. Lengths are in metres.
package geodesy

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CenterEpsilon is the per-component distance from the origin below which a
// position is treated as the ellipsoid centre, where the surface normal is
// undefined.
const CenterEpsilon = 1e-14

// centerToleranceSquared bounds the squared normalised distance below which
// ProjectOnSurface returns the radial intersection without refinement.
const centerToleranceSquared = 0.1

// Ellipsoid is an origin-centred ellipsoid with the given semi-axes.
type Ellipsoid struct {
	Radii mgl64.Vec3
}

// WGS84 is the World Geodetic System 1984 ellipsoid.
var WGS84 = Ellipsoid{Radii: mgl64.Vec3{6378137, 6378137, 6356752.3142451793}}

// NewEllipsoid returns an ellipsoid with semi-axes x, y and z.
func NewEllipsoid(x, y, z float64) Ellipsoid {
	return Ellipsoid{Radii: mgl64.Vec3{x, y, z}}
}

// MinimumRadius returns the smallest semi-axis.
func (e Ellipsoid) MinimumRadius() float64 {
	return math.Min(e.Radii[0], math.Min(e.Radii[1], e.Radii[2]))
}

// MaximumRadius returns the largest semi-axis.
func (e Ellipsoid) MaximumRadius() float64 {
	return math.Max(e.Radii[0], math.Max(e.Radii[1], e.Radii[2]))
}

func (e Ellipsoid) oneOverRadiiSquared() mgl64.Vec3 {
	return mgl64.Vec3{
		1 / (e.Radii[0] * e.Radii[0]),
		1 / (e.Radii[1] * e.Radii[1]),
		1 / (e.Radii[2] * e.Radii[2]),
	}
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// nearCenter reports whether every component of p is within CenterEpsilon
// of zero.
func nearCenter(p mgl64.Vec3) bool {
	return math.Abs(p[0]) < CenterEpsilon && math.Abs(p[1]) < CenterEpsilon && math.Abs(p[2]) < CenterEpsilon
}

// SurfaceNormal returns the unit normal of the ellipsoid's level surface
// through p. It returns false at the centre, where the gradient vanishes.
func (e Ellipsoid) SurfaceNormal(p mgl64.Vec3) (mgl64.Vec3, bool) {
	if nearCenter(p) {
		return mgl64.Vec3{}, false
	}
	n := mulElem(p, e.oneOverRadiiSquared())
	l := n.Len()
	if l == 0 || math.IsInf(l, 0) || math.IsNaN(l) {
		return mgl64.Vec3{}, false
	}
	return n.Mul(1 / l), true
}

// ProjectOnSurface returns the point of the surface whose normal passes
// through p. It returns false near the centre.
func (e Ellipsoid) ProjectOnSurface(p mgl64.Vec3) (mgl64.Vec3, bool) {
	if nearCenter(p) {
		return mgl64.Vec3{}, false
	}
	inv2 := e.oneOverRadiiSquared()

	x2 := p[0] * p[0] * inv2[0]
	y2 := p[1] * p[1] * inv2[1]
	z2 := p[2] * p[2] * inv2[2]
	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1 / squaredNorm)
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return mgl64.Vec3{}, false
	}

	intersection := p.Mul(ratio)
	if squaredNorm < centerToleranceSquared {
		return intersection, true
	}

	gradient := mulElem(intersection, inv2).Mul(2)
	lambda := (1 - ratio) * p.Len() / (0.5 * gradient.Len())
	correction := 0.0

	var xm, ym, zm float64
	for range 64 {
		lambda -= correction
		xm = 1 / (1 + lambda*inv2[0])
		ym = 1 / (1 + lambda*inv2[1])
		zm = 1 / (1 + lambda*inv2[2])

		xm2, ym2, zm2 := xm*xm, ym*ym, zm*zm
		f := x2*xm2 + y2*ym2 + z2*zm2 - 1
		if math.Abs(f) <= 1e-12 {
			break
		}
		denominator := x2*xm2*xm*inv2[0] + y2*ym2*ym*inv2[1] + z2*zm2*zm*inv2[2]
		correction = f / (-2 * denominator)
	}
	return mgl64.Vec3{p[0] * xm, p[1] * ym, p[2] * zm}, true
}

// OsculatingSphereCenter returns the centre of the sphere of the given
// radius that touches the ellipsoid at surface and shares its normal there.
func (e Ellipsoid) OsculatingSphereCenter(surface mgl64.Vec3, radius float64) (mgl64.Vec3, bool) {
	n, ok := e.SurfaceNormal(surface)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return surface.Sub(n.Mul(radius)), true
}

// AltitudeCorrection returns the offset that moves positions near camera
// from the ellipsoid frame into the frame of a spherical atmosphere of the
// given bottom radius, so that the atmosphere's ground coincides with the
// ellipsoid surface below the camera. It returns false when the camera is at
// the centre.
func (e Ellipsoid) AltitudeCorrection(camera mgl64.Vec3, bottomRadius float64) (mgl64.Vec3, bool) {
	surface, ok := e.ProjectOnSurface(camera)
	if !ok {
		return mgl64.Vec3{}, false
	}
	center, ok := e.OsculatingSphereCenter(surface, bottomRadius)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return center.Mul(-1), true
}
