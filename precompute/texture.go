package precompute

import "fmt"

// TextureID names one of the tables a plan reads or writes.
type TextureID int

// Tables of a plan. The delta tables hold the contribution of the current
// scattering order and are never published.
const (
	Transmittance TextureID = iota
	Irradiance
	DeltaIrradiance
	DeltaRayleigh
	DeltaMie
	Scattering
	SingleMie
	DeltaDensity
	DeltaMultiple

	// NumTextures is the number of TextureIDs.
	NumTextures
)

var textureNames = [NumTextures]string{
	Transmittance:   "transmittance",
	Irradiance:      "irradiance",
	DeltaIrradiance: "delta_irradiance",
	DeltaRayleigh:   "delta_rayleigh",
	DeltaMie:        "delta_mie",
	Scattering:      "scattering",
	SingleMie:       "single_mie_scattering",
	DeltaDensity:    "delta_scattering_density",
	DeltaMultiple:   "delta_multiple_scattering",
}

func (id TextureID) String() string {
	if id < 0 || id >= NumTextures {
		return fmt.Sprintf("TextureID(%d)", int(id))
	}
	return textureNames[id]
}

// Shape is the size of a table. 2D tables have Depth 1.
type Shape struct {
	Width, Height, Depth int
}

// Texels returns the number of texels.
func (s Shape) Texels() int { return s.Width * s.Height * s.Depth }

// Rows returns the number of texel rows across all slices.
func (s Shape) Rows() int { return s.Height * s.Depth }
