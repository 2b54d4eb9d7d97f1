// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/atmosphere/internal/cache"
	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed sky.wgsl
var skySource string

// Entry points of the sky program.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
	GroundEntryPoint   = "fs_ground"
)

// Errors returned by Program.
var (
	// ErrNilDevice is returned when CreateModule is called without a device.
	ErrNilDevice = errors.New("shader: nil device")

	// ErrNoHalDevice is returned when a device provider does not expose a
	// HAL device.
	ErrNoHalDevice = errors.New("shader: provider has no HAL device")
)

// Defines are the values baked into the constant prelude of a program.
type Defines struct {
	Parameters model.Parameters
	Resolution model.Resolution

	// CombinedScattering selects the alpha-packed single Mie layout. The
	// single_mie_texture binding must still be bound, usually to a 1x1x1
	// placeholder.
	CombinedScattering bool
}

// Prelude renders the WGSL constant declarations for d.
func (d Defines) Prelude() string {
	var b strings.Builder
	p := d.Parameters
	r := d.Resolution

	ints := []struct {
		name  string
		value int
	}{
		{"TRANSMITTANCE_WIDTH", r.TransmittanceWidth},
		{"TRANSMITTANCE_HEIGHT", r.TransmittanceHeight},
		{"SCATTERING_R", r.ScatteringR},
		{"SCATTERING_MU", r.ScatteringMu},
		{"SCATTERING_MU_S", r.ScatteringMuS},
		{"SCATTERING_NU", r.ScatteringNu},
		{"IRRADIANCE_WIDTH", r.IrradianceWidth},
		{"IRRADIANCE_HEIGHT", r.IrradianceHeight},
	}
	for _, c := range ints {
		fmt.Fprintf(&b, "const %s: i32 = %d;\n", c.name, c.value)
	}

	floats := []struct {
		name  string
		value float64
	}{
		{"BOTTOM_RADIUS", p.BottomRadius},
		{"TOP_RADIUS", p.TopRadius},
		{"SUN_ANGULAR_RADIUS", p.SunAngularRadius},
		{"MIE_PHASE_FUNCTION_G", p.MiePhaseFunctionG},
		{"MU_S_MIN", p.MuSMin},
	}
	for _, c := range floats {
		fmt.Fprintf(&b, "const %s: f32 = %s;\n", c.name, wgslFloat(c.value))
	}

	vectors := []struct {
		name  string
		value model.Spectrum
	}{
		{"SOLAR_IRRADIANCE", p.SolarIrradiance},
		{"RAYLEIGH_SCATTERING", p.RayleighScattering},
		{"MIE_SCATTERING", p.MieScattering},
		{"GROUND_ALBEDO", p.GroundAlbedo},
	}
	for _, c := range vectors {
		fmt.Fprintf(&b, "const %s: vec3<f32> = vec3<f32>(%s, %s, %s);\n",
			c.name, wgslFloat(c.value[0]), wgslFloat(c.value[1]), wgslFloat(c.value[2]))
	}

	fmt.Fprintf(&b, "const COMBINED_SCATTERING: bool = %t;\n", d.CombinedScattering)
	return b.String()
}

// wgslFloat formats v as an f32 literal. WGSL requires a decimal point or
// exponent on float literals.
func wgslFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		v = 0
	}
	s := fmt.Sprintf("%g", float32(v))
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Program is the runtime sky program for one set of defines.
type Program struct {
	defines Defines
	source  string
}

// NewProgram renders the sky program for d.
func NewProgram(d Defines) *Program {
	return &Program{
		defines: d,
		source:  d.Prelude() + "\n" + skySource,
	}
}

// Source returns the complete WGSL source.
func (p *Program) Source() string {
	return p.source
}

// Defines returns the values the program was rendered with.
func (p *Program) Defines() Defines {
	return p.defines
}

// compiled caches SPIR-V by WGSL source, so equal defines compile once.
var compiled = cache.New[string, []uint32](16)

// Compile compiles the program to SPIR-V words. Results are cached.
func (p *Program) Compile() ([]uint32, error) {
	return compiled.GetOrCreate(p.source, func() ([]uint32, error) {
		return compileSPIRV(p.source)
	})
}

// CacheStats reports the compiled program cache statistics.
func CacheStats() cache.Stats {
	return compiled.Stats()
}

func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile sky program: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	Logger().Debug("shader: program compiled", "words", len(words))
	return words, nil
}

// CreateModule compiles the program and creates a HAL shader module on
// device. The caller owns the module.
func (p *Program) CreateModule(device hal.Device) (hal.ShaderModule, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	words, err := p.Compile()
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "atmosphere_sky",
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create module: %w", err)
	}
	return module, nil
}

// halProvider is implemented by device providers that expose the HAL device.
type halProvider interface {
	HalDevice() any
}

// HalDevice extracts the HAL device from a host device provider.
func HalDevice(provider any) (hal.Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNoHalDevice
	}
	return device, nil
}
