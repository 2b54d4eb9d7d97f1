// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Feature names reported by CapabilityError.
const (
	FeatureFloat32Filterable     = "float32-filterable"
	FeatureFloat16Filterable     = "float16-filterable"
	FeatureMultipleRenderTargets = "multiple-render-targets"
	FeatureCompute               = "compute"
	FeatureTextureSize           = "texture-size"
)

// DeviceCapabilities describes the capabilities of a GPU device that matter
// for lookup table precomputation and sampling.
type DeviceCapabilities struct {
	// MaxTextureSize is the maximum 2D texture dimension supported.
	MaxTextureSize uint32

	// MaxTextureSize3D is the maximum 3D texture dimension supported.
	MaxTextureSize3D uint32

	// MaxColorAttachments is the number of render targets a single pass can
	// write.
	MaxColorAttachments uint32

	// SupportsCompute indicates if compute shaders are supported.
	SupportsCompute bool

	// SupportsStorageTextures indicates if storage textures are supported.
	SupportsStorageTextures bool

	// Float32Filterable reports linear filtering of RGBA32Float textures.
	Float32Filterable bool

	// Float16Filterable reports linear filtering of RGBA16Float textures.
	Float16Filterable bool

	// VendorName is the GPU vendor name.
	VendorName string

	// DeviceName is the GPU device name.
	DeviceName string
}

// CapabilitiesFromLimits derives capabilities from WebGPU features and limits.
// RGBA16Float filtering is part of core WebGPU; RGBA32Float filtering needs
// the float32-filterable feature.
func CapabilitiesFromLimits(features gputypes.Features, limits gputypes.Limits) DeviceCapabilities {
	return DeviceCapabilities{
		MaxTextureSize:          limits.MaxTextureDimension2D,
		MaxTextureSize3D:        limits.MaxTextureDimension3D,
		MaxColorAttachments:     limits.MaxColorAttachments,
		SupportsCompute:         true,
		SupportsStorageTextures: true,
		Float32Filterable:       features.Contains(gputypes.FeatureFloat32Filterable),
		Float16Filterable:       true,
	}
}

// SoftwareCapabilities returns the capabilities of the CPU texel engine,
// which supports every feature at any size.
func SoftwareCapabilities() DeviceCapabilities {
	return DeviceCapabilities{
		MaxTextureSize:          1 << 16,
		MaxTextureSize3D:        1 << 12,
		MaxColorAttachments:     8,
		SupportsCompute:         true,
		SupportsStorageTextures: true,
		Float32Filterable:       true,
		Float16Filterable:       true,
		VendorName:              "gogpu",
		DeviceName:              "software",
	}
}

// CapabilityError reports a GPU feature that is required but absent.
type CapabilityError struct {
	// Feature is one of the Feature* names.
	Feature string

	// Detail optionally describes the requirement.
	Detail string
}

func (e *CapabilityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("render: missing capability %s: %s", e.Feature, e.Detail)
	}
	return "render: missing capability " + e.Feature
}

// SelectFormat chooses the lookup table format.
//
// With half set, RGBA16Float is used and must be filterable. Otherwise
// RGBA32Float is used when filterable; when it is not and allowFallback is
// set, RGBA16Float is returned with fellBack true. Every other case is a
// *CapabilityError.
func SelectFormat(caps DeviceCapabilities, half, allowFallback bool) (format gputypes.TextureFormat, fellBack bool, err error) {
	if half {
		if !caps.Float16Filterable {
			return gputypes.TextureFormatUndefined, false, &CapabilityError{Feature: FeatureFloat16Filterable}
		}
		return gputypes.TextureFormatRGBA16Float, false, nil
	}
	if caps.Float32Filterable {
		return gputypes.TextureFormatRGBA32Float, false, nil
	}
	if allowFallback && caps.Float16Filterable {
		return gputypes.TextureFormatRGBA16Float, true, nil
	}
	return gputypes.TextureFormatUndefined, false, &CapabilityError{
		Feature: FeatureFloat32Filterable,
		Detail:  "enable half-float tables or allow the fallback",
	}
}

// CheckTextureSize returns a *CapabilityError if the descriptor exceeds the
// device limits. A zero limit is treated as unlimited.
func CheckTextureSize(caps DeviceCapabilities, desc TextureDescriptor) error {
	limit := caps.MaxTextureSize
	if desc.Dimension == gputypes.TextureDimension3D {
		limit = caps.MaxTextureSize3D
	}
	if limit == 0 {
		return nil
	}
	if desc.Width > limit || desc.Height > limit || desc.Depth > limit {
		return &CapabilityError{
			Feature: FeatureTextureSize,
			Detail:  fmt.Sprintf("%s is %dx%dx%d, limit %d", desc.Label, desc.Width, desc.Height, desc.Depth, limit),
		}
	}
	return nil
}
