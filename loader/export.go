package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/texture"
	"github.com/pelletier/go-toml/v2"
)

// ManifestName is the file name of the manifest in an artifact directory.
const ManifestName = "atmosphere.toml"

// ReadManifest decodes the manifest of an artifact directory.
func ReadManifest(fsys fs.FS) (Manifest, error) {
	var m Manifest
	data, err := fs.ReadFile(fsys, ManifestName)
	if err != nil {
		return m, fmt.Errorf("loader: read %s: %w", ManifestName, err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, m.Validate()
}

// Encode serialises set into artifact files keyed by file name, including
// the manifest. With half set, tables are narrowed to binary16.
func Encode(set *precompute.TextureSet, half bool) (map[string][]byte, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	m := ManifestFor(set)
	m.HalfFloat = half

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("loader: encode manifest: %w", err)
	}
	files := map[string][]byte{ManifestName: buf.Bytes()}
	for _, a := range set.Artifacts() {
		if half {
			files[FileName(a.Name, true)] = texture.EncodeFloat16Array(a.Data)
		} else {
			files[FileName(a.Name, false)] = texture.EncodeFloat32Array(a.Data)
		}
	}
	return files, nil
}

// Export writes set to dir, creating it if needed. It returns the written
// file names relative to dir, sorted.
func Export(dir string, set *precompute.TextureSet, half bool) ([]string, error) {
	files, err := Encode(set, half)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	names := make([]string, 0, len(files))
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	precompute.Logger().Info("loader: artifacts exported", "dir", dir, "files", len(names), "half", half)
	return names, nil
}
