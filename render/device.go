// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, so any host in the
// gpucontext ecosystem (gogpu.App, ggcanvas) can hand its device over without
// adapters.
type DeviceHandle = gpucontext.DeviceProvider

// TextureDescriptor describes a lookup table texture to be created by the
// host. This mirrors the WebGPU GPUTextureDescriptor.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Dimension is 2D for transmittance and irradiance, 3D for scattering.
	Dimension gputypes.TextureDimension

	Width  uint32
	Height uint32

	// Depth is the slice count of 3D textures. Use 1 for 2D textures.
	Depth uint32

	// MipLevelCount is always 1 for lookup tables.
	MipLevelCount uint32

	// Format is the texel format chosen by SelectFormat.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage
}

// TextureUsage specifies how a texture can be used.
// These flags can be combined with bitwise OR.
type TextureUsage uint32

const (
	// TextureUsageCopySrc allows the texture to be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << iota

	// TextureUsageCopyDst allows the texture to be used as a copy destination.
	TextureUsageCopyDst

	// TextureUsageTextureBinding allows the texture to be sampled.
	TextureUsageTextureBinding

	// TextureUsageStorageBinding allows the texture to be written by compute.
	TextureUsageStorageBinding

	// TextureUsageRenderAttachment allows the texture to be a render target.
	TextureUsageRenderAttachment
)

// LookupTableDescriptor returns the descriptor of a lookup table texture.
// A depth greater than 1 selects a 3D texture.
func LookupTableDescriptor(label string, width, height, depth int, format gputypes.TextureFormat) TextureDescriptor {
	dim := gputypes.TextureDimension2D
	if depth > 1 {
		dim = gputypes.TextureDimension3D
	}
	if depth < 1 {
		depth = 1
	}
	return TextureDescriptor{
		Label:         label,
		Dimension:     dim,
		Width:         uint32(width),  //nolint:gosec // table sizes are small positive ints
		Height:        uint32(height), //nolint:gosec // table sizes are small positive ints
		Depth:         uint32(depth),  //nolint:gosec // table sizes are small positive ints
		MipLevelCount: 1,
		Format:        format,
		Usage:         TextureUsageTextureBinding | TextureUsageCopyDst | TextureUsageRenderAttachment,
	}
}

// ByteSize returns the memory footprint of the texture's single mip level.
func (d TextureDescriptor) ByteSize() int {
	return int(d.Width) * int(d.Height) * int(d.Depth) * BytesPerTexel(d.Format)
}

// BytesPerTexel returns the size of one texel of a lookup table format.
// Formats other than the RGBA float formats report 0.
func BytesPerTexel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatRGBA16Float:
		return 8
	default:
		return 0
	}
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used when lookup tables are produced and evaluated on the CPU only.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
