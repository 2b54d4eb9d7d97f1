// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformSize is the byte size of the Frame uniform block.
const UniformSize = 112

// Uniforms is the per-frame uniform block of the sky program.
type Uniforms struct {
	// ViewFromClip maps clip coordinates to world space view directions.
	ViewFromClip mgl32.Mat4

	// Camera is the camera position in km, relative to the planet centre.
	Camera   mgl32.Vec3
	Exposure float32

	// SunDirection is the unit direction towards the sun.
	SunDirection mgl32.Vec3
	// SunSize is the cosine of the sun angular radius.
	SunSize float32

	WhitePoint mgl32.Vec3
}

// NewUniforms returns uniforms for a camera with the given world-from-view
// transform and projection. Only the rotation of worldFromView is used for
// view rays.
func NewUniforms(worldFromView, projection mgl32.Mat4, camera, sun mgl32.Vec3, sunAngularRadius float32) Uniforms {
	rotation := worldFromView.Mat3().Mat4()
	return Uniforms{
		ViewFromClip: rotation.Mul4(projection.Inv()),
		Camera:       camera,
		Exposure:     10,
		SunDirection: sun.Normalize(),
		SunSize:      float32(math.Cos(float64(sunAngularRadius))),
		WhitePoint:   mgl32.Vec3{1, 1, 1},
	}
}

// Bytes packs the block in WGSL uniform layout, little-endian.
func (u *Uniforms) Bytes() []byte {
	return u.AppendBytes(make([]byte, 0, UniformSize))
}

// AppendBytes appends the packed block to dst.
func (u *Uniforms) AppendBytes(dst []byte) []byte {
	put := func(v float32) {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	// mat4x4<f32> is column-major, as is mgl32.Mat4.
	for _, v := range u.ViewFromClip {
		put(v)
	}
	for _, v := range u.Camera {
		put(v)
	}
	put(u.Exposure)
	for _, v := range u.SunDirection {
		put(v)
	}
	put(u.SunSize)
	for _, v := range u.WhitePoint {
		put(v)
	}
	put(0)
	return dst
}
