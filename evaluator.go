package atmosphere

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/atmosphere/geodesy"
	"github.com/gogpu/atmosphere/internal/model"
)

// metresToKm converts world units to model units.
const metresToKm = 0.001

// Evaluator answers sky, aerial perspective and irradiance queries from a
// texture set. Positions are world coordinates in metres, relative to the
// ellipsoid centre; directions are unit vectors in the same frame.
//
// With altitude correction enabled, call UpdateCamera whenever the camera
// moves; queries use the correction of the last update.
//
// Results are written into caller-provided samples, which are returned for
// convenience. An Evaluator is not safe for concurrent use because
// UpdateCamera mutates it; create one per goroutine.
type Evaluator struct {
	params model.Parameters
	res    model.Resolution
	tables *model.Tables

	ellipsoid          geodesy.Ellipsoid
	altitudeCorrection bool
	// offset moves world positions into the atmosphere frame, in metres.
	offset mgl64.Vec3
}

// NewEvaluator returns an evaluator over set without altitude correction.
// It panics if set is nil or incomplete: evaluating a partial set is a
// programming error.
func NewEvaluator(params Parameters, set *TextureSet) *Evaluator {
	if err := set.Validate(); err != nil {
		panic("atmosphere: NewEvaluator: " + err.Error())
	}
	return &Evaluator{
		params:    params,
		res:       set.Resolution,
		tables:    set.Tables(),
		ellipsoid: geodesy.WGS84,
	}
}

// UpdateCamera recomputes the altitude correction for a camera at the given
// world position. It reports false and keeps the previous correction when
// the camera is too close to the ellipsoid centre. Without altitude
// correction it does nothing.
func (e *Evaluator) UpdateCamera(camera mgl64.Vec3) bool {
	if !e.altitudeCorrection {
		return true
	}
	offset, ok := e.ellipsoid.AltitudeCorrection(camera, e.params.BottomRadius/metresToKm)
	if !ok {
		return false
	}
	e.offset = offset
	return true
}

// Offset returns the world-to-atmosphere translation in metres.
func (e *Evaluator) Offset() mgl64.Vec3 {
	return e.offset
}

// ToAtmosphere converts a world position to the atmosphere frame in km.
func (e *Evaluator) ToAtmosphere(world mgl64.Vec3) model.Vec3 {
	return model.Vec3(world.Add(e.offset).Mul(metresToKm))
}

// SkyRadiance computes the radiance of the sky seen from camera along
// direction dir, lit from sun. Transmittance is zero for rays that hit the
// ground.
func (e *Evaluator) SkyRadiance(camera, dir, sun mgl64.Vec3, out *RadianceSample) *RadianceSample {
	out.Radiance, out.Transmittance = e.params.SkyRadiance(e.res, e.tables,
		e.ToAtmosphere(camera), model.Vec3(dir), model.Vec3(sun))
	return out
}

// SkyRadianceToPoint computes the radiance in-scattered between camera and
// point and the transmittance between them.
func (e *Evaluator) SkyRadianceToPoint(camera, point, sun mgl64.Vec3, out *RadianceSample) *RadianceSample {
	out.Radiance, out.Transmittance = e.params.SkyRadianceToPoint(e.res, e.tables,
		e.ToAtmosphere(camera), e.ToAtmosphere(point), model.Vec3(sun))
	return out
}

// AerialPerspective is SkyRadianceToPoint for the point at depth metres
// from camera along dir.
func (e *Evaluator) AerialPerspective(camera, dir mgl64.Vec3, depth float64, sun mgl64.Vec3, out *RadianceSample) *RadianceSample {
	return e.SkyRadianceToPoint(camera, camera.Add(dir.Mul(depth)), sun, out)
}

// SunAndSkyIrradiance computes the direct and diffuse irradiance received
// by a surface at point with the given unit normal.
func (e *Evaluator) SunAndSkyIrradiance(point, normal, sun mgl64.Vec3, out *IrradianceSample) *IrradianceSample {
	out.Sun, out.Sky = e.params.SunAndSkyIrradiance(e.res, e.tables,
		e.ToAtmosphere(point), model.Vec3(normal), model.Vec3(sun))
	return out
}

// SolarRadiance returns the radiance of the solar disc outside the
// atmosphere.
func (e *Evaluator) SolarRadiance() Spectrum {
	return e.params.SolarRadiance()
}

// Parameters returns the parameters the tables were built for.
func (e *Evaluator) Parameters() Parameters {
	return e.params
}
