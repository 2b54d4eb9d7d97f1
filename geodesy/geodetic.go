package geodesy

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Geodetic is a position given by longitude and latitude in radians and
// height above the ellipsoid in metres.
type Geodetic struct {
	Longitude float64
	Latitude  float64
	Height    float64
}

// FromDegrees returns a geodetic position from degrees.
func FromDegrees(longitude, latitude, height float64) Geodetic {
	return Geodetic{
		Longitude: mgl64.DegToRad(longitude),
		Latitude:  mgl64.DegToRad(latitude),
		Height:    height,
	}
}

// normal returns the geodetic surface normal, which is also the up vector.
func (g Geodetic) normal() mgl64.Vec3 {
	cosLat := math.Cos(g.Latitude)
	return mgl64.Vec3{
		cosLat * math.Cos(g.Longitude),
		cosLat * math.Sin(g.Longitude),
		math.Sin(g.Latitude),
	}
}

// ToECEF returns the position in the Earth-centred Earth-fixed frame of e.
func (g Geodetic) ToECEF(e Ellipsoid) mgl64.Vec3 {
	n := g.normal()
	k := mulElem(mulElem(e.Radii, e.Radii), n)
	gamma := math.Sqrt(n.Dot(k))
	return k.Mul(1 / gamma).Add(n.Mul(g.Height))
}

// GeodeticFromECEF converts an ECEF position. It returns false at the
// ellipsoid centre.
func GeodeticFromECEF(e Ellipsoid, p mgl64.Vec3) (Geodetic, bool) {
	surface, ok := e.ProjectOnSurface(p)
	if !ok {
		return Geodetic{}, false
	}
	n, ok := e.SurfaceNormal(surface)
	if !ok {
		return Geodetic{}, false
	}
	h := p.Sub(surface)
	height := h.Len()
	if h.Dot(p) < 0 {
		height = -height
	}
	return Geodetic{
		Longitude: math.Atan2(n[1], n[0]),
		Latitude:  math.Asin(mgl64.Clamp(n[2], -1, 1)),
		Height:    height,
	}, true
}

// EastNorthUp returns the local tangent frame at g as the columns east,
// north and up, in ECEF.
func (g Geodetic) EastNorthUp() mgl64.Mat3 {
	sinLon, cosLon := math.Sincos(g.Longitude)
	sinLat, cosLat := math.Sincos(g.Latitude)
	east := mgl64.Vec3{-sinLon, cosLon, 0}
	north := mgl64.Vec3{-sinLat * cosLon, -sinLat * sinLon, cosLat}
	up := mgl64.Vec3{cosLat * cosLon, cosLat * sinLon, sinLat}
	return mgl64.Mat3FromCols(east, north, up)
}
