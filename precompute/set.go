package precompute

import (
	"errors"
	"fmt"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
	"github.com/gogpu/gputypes"
)

// ErrIncompleteSet is returned for a texture set missing a table or holding
// a table whose size does not match its resolution.
var ErrIncompleteSet = errors.New("precompute: incomplete texture set")

// TextureSet is the published result of a precomputation or an artifact
// load. It is never modified after publication.
type TextureSet struct {
	Resolution model.Resolution
	Format     gputypes.TextureFormat
	HalfFloat  bool

	Transmittance *texture.Texture2D
	Scattering    *texture.Texture3D
	// SingleMie is nil when single Mie scattering is packed into the alpha
	// channel of Scattering.
	SingleMie  *texture.Texture3D
	Irradiance *texture.Texture2D
}

// Combined reports whether single Mie scattering is packed into Scattering.
func (s *TextureSet) Combined() bool { return s.SingleMie == nil }

// Validate checks that every table is present with the size implied by
// Resolution.
func (s *TextureSet) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrIncompleteSet)
	}
	res := s.Resolution
	w, h, d := res.ScatteringSize()
	check2D := func(name string, t *texture.Texture2D, width, height int) error {
		if t == nil {
			return fmt.Errorf("%w: missing %s", ErrIncompleteSet, name)
		}
		if t.Width != width || t.Height != height || len(t.Data) != width*height*texture.Channels {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrIncompleteSet, name, t.Width, t.Height, width, height)
		}
		return nil
	}
	check3D := func(name string, t *texture.Texture3D) error {
		if t.Width != w || t.Height != h || t.Depth != d || len(t.Data) != w*h*d*texture.Channels {
			return fmt.Errorf("%w: %s is %dx%dx%d, want %dx%dx%d", ErrIncompleteSet, name, t.Width, t.Height, t.Depth, w, h, d)
		}
		return nil
	}

	if err := check2D(Transmittance.String(), s.Transmittance, res.TransmittanceWidth, res.TransmittanceHeight); err != nil {
		return err
	}
	if err := check2D(Irradiance.String(), s.Irradiance, res.IrradianceWidth, res.IrradianceHeight); err != nil {
		return err
	}
	if s.Scattering == nil {
		return fmt.Errorf("%w: missing %s", ErrIncompleteSet, Scattering)
	}
	if err := check3D(Scattering.String(), s.Scattering); err != nil {
		return err
	}
	if s.SingleMie != nil {
		return check3D(SingleMie.String(), s.SingleMie)
	}
	return nil
}

// Tables returns samplers over the set for the runtime evaluator.
func (s *TextureSet) Tables() *model.Tables {
	tb := &model.Tables{
		Transmittance: s.Transmittance,
		Scattering:    s.Scattering,
		Irradiance:    s.Irradiance,
	}
	if s.SingleMie != nil {
		tb.SingleMie = s.SingleMie
	}
	return tb
}

// Artifact is one table of a set in serialisable form.
type Artifact struct {
	Name   string
	Width  int
	Height int
	// Depth is 1 for 2D tables.
	Depth int
	Data  []float32
}

// Artifacts returns the tables of the set in a fixed order.
// The data slices are shared with the set and must not be modified.
func (s *TextureSet) Artifacts() []Artifact {
	out := []Artifact{
		{Transmittance.String(), s.Transmittance.Width, s.Transmittance.Height, 1, s.Transmittance.Data},
		{Scattering.String(), s.Scattering.Width, s.Scattering.Height, s.Scattering.Depth, s.Scattering.Data},
	}
	if s.SingleMie != nil {
		out = append(out, Artifact{SingleMie.String(), s.SingleMie.Width, s.SingleMie.Height, s.SingleMie.Depth, s.SingleMie.Data})
	}
	return append(out, Artifact{Irradiance.String(), s.Irradiance.Width, s.Irradiance.Height, 1, s.Irradiance.Data})
}

// Descriptors returns the GPU texture descriptors of the set.
func (s *TextureSet) Descriptors() []render.TextureDescriptor {
	arts := s.Artifacts()
	out := make([]render.TextureDescriptor, len(arts))
	for i, a := range arts {
		out[i] = render.LookupTableDescriptor(a.Name, a.Width, a.Height, a.Depth, s.Format)
	}
	return out
}

// ByteSize returns the GPU memory needed by the set.
func (s *TextureSet) ByteSize() int {
	n := 0
	for _, d := range s.Descriptors() {
		n += d.ByteSize()
	}
	return n
}

// flatten views a depth-1 volume as a 2D texture sharing its data.
func flatten(t *texture.Texture3D) *texture.Texture2D {
	return &texture.Texture2D{Width: t.Width, Height: t.Height, Data: t.Data}
}
