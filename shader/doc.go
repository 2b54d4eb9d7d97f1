// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader ships the runtime sky as a WGSL program for GPU hosts.
//
// The program evaluates the same model as the CPU evaluator in the root
// atmosphere package, reading the precomputed tables through a single
// linear sampler:
//
//	@group(0) @binding(0) uniform Frame (see Uniforms)
//	@group(0) @binding(1) sampler
//	@group(0) @binding(2) texture_2d  transmittance
//	@group(0) @binding(3) texture_3d  scattering
//	@group(0) @binding(4) texture_3d  single Mie scattering
//	@group(0) @binding(5) texture_2d  irradiance
//
// Table sizes and atmosphere coefficients are baked into a constant prelude,
// so a Program must be rebuilt whenever the parameters or resolution change.
// Compilation to SPIR-V goes through naga and is cached per source.
package shader
