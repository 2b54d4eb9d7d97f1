// Package precompute generates the atmosphere lookup tables.
//
// A Plan is the fixed sequence of passes that produces the tables:
//
//	transmittance
//	direct irradiance
//	single scattering
//	for order := 2; order <= N; order++ {
//	    scattering density
//	    indirect irradiance
//	    multiple scattering
//	}
//
// Every pass is a texel kernel evaluated once per texel centre of its target,
// writing one or more outputs with either replace or additive blending. Each
// pass reads only textures written by earlier passes and never a texture it
// writes itself; Plan.Validate checks both rules.
//
// A Backend executes a plan. The raster backend drives render targets the way
// fragment passes would; the nodegraph backend compiles the plan into a
// graph of texture nodes. Both call the same kernels and the same float32
// blending, so their output is identical.
//
// Intermediate tables stay float32 for the whole run. Quantization to
// binary16 happens once, on the published TextureSet.
package precompute
