// Package atmosphere renders physically based skies and aerial perspective
// from precomputed scattering tables.
//
// # Overview
//
// An Atmosphere owns a set of physical parameters and the lookup tables
// derived from them: transmittance, scattering (Rayleigh plus multiple
// scattering, with single Mie either packed into alpha or stored apart) and
// ground irradiance. Tables are either computed on a precompute backend or
// loaded from artifacts written by cmd/atmoprecompute.
//
// # Quick Start
//
//	atm, err := atmosphere.New(atmosphere.DefaultParameters())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer atm.Dispose()
//
//	if err := atm.Sync(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ev, _ := atm.Evaluator()
//
//	var s atmosphere.RadianceSample
//	ev.SkyRadiance(camera, viewDir, sunDir, &s)
//
// # Units
//
// Parameters are in kilometres. Evaluator positions are world coordinates
// in metres, relative to the ellipsoid centre; they are moved into the
// atmosphere frame with an optional altitude correction and scaled to
// kilometres.
//
// # Updates
//
// Setters only record what changed. Sync recomputes the tables when a
// change requires it. Starting a new precomputation supersedes the one in
// flight: its results are discarded and it returns ErrSuperseded.
//
// # Backends
//
// Two precompute backends ship with the package: "raster", which runs each
// pass like a fragment shader into render targets, and "nodegraph", which
// compiles the passes into a texture node graph. Both call the same model
// and produce the same tables.
package atmosphere
