// Package loader reads precomputed lookup tables from artifact files.
//
// An artifact directory holds one file per table plus a manifest:
//
//	atmosphere.toml                      resolution and storage flags
//	transmittance[.f16].bin              2D, RGBA
//	scattering[.f16].bin                 3D, RGBA
//	single_mie_scattering[.f16].bin      3D, RGBA, absent when combined
//	irradiance[.f16].bin                 2D, RGBA
//
// Tables are little-endian binary32, or binary16 when the manifest selects
// half floats. Loading either returns a complete texture set or an error;
// a partially loaded set is never returned.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gogpu/atmosphere/internal/model"
	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/texture"
	"github.com/gogpu/gputypes"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidManifest is returned for a manifest that cannot describe a set.
var ErrInvalidManifest = errors.New("loader: invalid manifest")

// Manifest declares the dimensions and encoding of an artifact set. The
// declared dimensions are trusted: files that disagree are rejected with a
// *texture.MalformedArtifactError.
type Manifest struct {
	Resolution         model.Resolution `toml:"resolution"`
	HalfFloat          bool             `toml:"half_float"`
	CombinedScattering bool             `toml:"combined_scattering"`
}

// ManifestFor returns the manifest describing set.
func ManifestFor(set *precompute.TextureSet) Manifest {
	return Manifest{
		Resolution:         set.Resolution,
		HalfFloat:          set.HalfFloat,
		CombinedScattering: set.Combined(),
	}
}

// Validate checks that the resolution is usable.
func (m Manifest) Validate() error {
	if !m.Resolution.Valid() {
		return fmt.Errorf("%w: resolution %+v", ErrInvalidManifest, m.Resolution)
	}
	return nil
}

// FileName returns the artifact file name of a table.
func FileName(table string, half bool) string {
	if half {
		return table + ".f16.bin"
	}
	return table + ".bin"
}

type entry struct {
	id                    precompute.TextureID
	width, height, depth int
}

func (m Manifest) entries() []entry {
	res := m.Resolution
	w, h, d := res.ScatteringSize()
	out := []entry{
		{precompute.Transmittance, res.TransmittanceWidth, res.TransmittanceHeight, 1},
		{precompute.Scattering, w, h, d},
	}
	if !m.CombinedScattering {
		out = append(out, entry{precompute.SingleMie, w, h, d})
	}
	return append(out, entry{precompute.Irradiance, res.IrradianceWidth, res.IrradianceHeight, 1})
}

// Load reads the tables declared by m from fsys concurrently.
//
// Load is retry-free. It stops at the first failing table and returns that
// error; file system errors are wrapped, so errors.Is(err, fs.ErrNotExist)
// works. When ctx is cancelled the context error is returned.
func Load(ctx context.Context, fsys fs.FS, m Manifest) (*precompute.TextureSet, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	entries := m.entries()
	tables := make([]*texture.Texture3D, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			t, err := loadTable(gctx, fsys, e, m.HalfFloat)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A table may complete after cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &precompute.TextureSet{
		Resolution: m.Resolution,
		Format:     gputypes.TextureFormatRGBA32Float,
		HalfFloat:  m.HalfFloat,
	}
	if m.HalfFloat {
		set.Format = gputypes.TextureFormatRGBA16Float
	}
	for i, e := range entries {
		t := tables[i]
		switch e.id {
		case precompute.Transmittance:
			set.Transmittance = &texture.Texture2D{Width: t.Width, Height: t.Height, Data: t.Data}
		case precompute.Irradiance:
			set.Irradiance = &texture.Texture2D{Width: t.Width, Height: t.Height, Data: t.Data}
		case precompute.Scattering:
			set.Scattering = t
		case precompute.SingleMie:
			set.SingleMie = t
		}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	precompute.Logger().Info("loader: artifacts loaded",
		"tables", len(entries),
		"half", m.HalfFloat,
		"bytes", set.ByteSize(),
		"elapsed", time.Since(start))
	return set, nil
}

func loadTable(ctx context.Context, fsys fs.FS, e entry, half bool) (*texture.Texture3D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := FileName(e.id.String(), half)
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", name, err)
	}
	values, err := texture.Decode(name, data, e.width*e.height*e.depth, half)
	if err != nil {
		return nil, err
	}
	precompute.Logger().Debug("loader: table decoded", "name", name, "bytes", len(data))
	return &texture.Texture3D{Width: e.width, Height: e.height, Depth: e.depth, Data: values}, nil
}

// LoadFS reads the manifest from fsys and then the tables it declares.
func LoadFS(ctx context.Context, fsys fs.FS) (*precompute.TextureSet, error) {
	m, err := ReadManifest(fsys)
	if err != nil {
		return nil, err
	}
	return Load(ctx, fsys, m)
}
