package main

import (
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/texture"
)

// previewImage maps the RGB channels of t to 16 bits, scaled so that the
// brightest channel value becomes white. Alpha is ignored.
func previewImage(t *texture.Texture2D) *image.NRGBA64 {
	peak := float32(0)
	for i := 0; i < len(t.Data); i += texture.Channels {
		for c := range 3 {
			if v := t.Data[i+c]; v > peak && !math.IsInf(float64(v), 0) {
				peak = v
			}
		}
	}
	scale := float32(0)
	if peak > 0 {
		scale = 1 / peak
	}

	im := image.NewNRGBA64(image.Rect(0, 0, t.Width, t.Height))
	for y := range t.Height {
		for x := range t.Width {
			v := t.Texel(x, y)
			// Row 0 of a table is its lowest coordinate; images grow downwards.
			im.SetNRGBA64(x, t.Height-1-y, color.NRGBA64{
				R: to16(v[0] * scale),
				G: to16(v[1] * scale),
				B: to16(v[2] * scale),
				A: 0xffff,
			})
		}
	}
	return im
}

func to16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// atlasColumns returns the number of depth slices per atlas row.
func atlasColumns(depth int) int {
	return int(math.Ceil(math.Sqrt(float64(depth))))
}

func encodePreview(w io.Writer, t *texture.Texture2D) error {
	return tiff.Encode(w, previewImage(t), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// WritePreviews writes one TIFF per table of set into dir. Volumes are laid
// out as atlases of their depth slices.
func WritePreviews(dir string, set *precompute.TextureSet) ([]string, error) {
	tables := []struct {
		name string
		tex  *texture.Texture2D
	}{
		{precompute.Transmittance.String(), set.Transmittance},
		{precompute.Scattering.String(), set.Scattering.Atlas(atlasColumns(set.Scattering.Depth))},
		{precompute.Irradiance.String(), set.Irradiance},
	}
	if set.SingleMie != nil {
		tables = append(tables, struct {
			name string
			tex  *texture.Texture2D
		}{precompute.SingleMie.String(), set.SingleMie.Atlas(atlasColumns(set.SingleMie.Depth))})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, tb := range tables {
		path := filepath.Join(dir, tb.name+".tiff")
		f, err := os.Create(path)
		if err != nil {
			return written, err
		}
		err = encodePreview(f, tb.tex)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
