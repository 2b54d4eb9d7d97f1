package geodesy

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sixdouglas/suncalc"
)

// SunPosition is the apparent sun position in the horizontal frame.
type SunPosition struct {
	// Altitude above the horizon in radians.
	Altitude float64
	// Azimuth in radians, clockwise from north.
	Azimuth float64
}

// SunPositionAt returns the sun position seen from g at time t.
func SunPositionAt(t time.Time, g Geodetic) SunPosition {
	p := suncalc.GetPosition(t, mgl64.RadToDeg(g.Latitude), mgl64.RadToDeg(g.Longitude))
	// suncalc measures azimuth from south, positive towards west.
	az := math.Mod(p.Azimuth+math.Pi, 2*math.Pi)
	if az < 0 {
		az += 2 * math.Pi
	}
	return SunPosition{Altitude: p.Altitude, Azimuth: az}
}

// ENU returns the unit direction to the sun in the local east-north-up frame.
func (s SunPosition) ENU() mgl64.Vec3 {
	sinAz, cosAz := math.Sincos(s.Azimuth)
	sinAlt, cosAlt := math.Sincos(s.Altitude)
	return mgl64.Vec3{sinAz * cosAlt, cosAz * cosAlt, sinAlt}
}

// SunDirection returns the unit direction to the sun from g at time t in the
// ECEF frame.
func SunDirection(t time.Time, g Geodetic) mgl64.Vec3 {
	return g.EastNorthUp().Mul3x1(SunPositionAt(t, g).ENU())
}
