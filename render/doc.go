// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render describes the GPU resources the atmosphere consumes from its
// host: the shared device, its capabilities, and the lookup table textures.
//
// The atmosphere RECEIVES a device from the host application, it does not
// create one. Capabilities are queried before any precomputation is
// dispatched so that a missing feature surfaces as a *CapabilityError
// instead of a silent loss of precision.
//
// # Formats
//
// Lookup tables are RGBA float textures. SelectFormat chooses between
// RGBA32Float and RGBA16Float from the requested precision and the device's
// filtering support:
//
//	format, err := render.SelectFormat(caps, false, true)
//	if err != nil {
//	    return err // *render.CapabilityError
//	}
package render
