// Package catalog maps logical model names to files under a models
// directory. The catalog is resolved once at startup and read-only
// afterwards; availability checks stat the filesystem on each call.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"whisperd/pkg/types"
)

// Auxiliary model files required for speaker diarization. Both live in
// the models directory next to the transcription models.
const (
	SegmentModelFile   = "segment-model.onnx"
	EmbeddingModelFile = "speaker-embedding-model.onnx"
)

// Catalog is a fixed lookup table of logical name -> backing file.
type Catalog struct {
	dir         string
	entries     map[string]string
	defaultName string
}

// New builds a catalog over dir. entries maps logical names to file
// names relative to dir; when entries is empty the directory is scanned
// for *.bin model files and each file name (without extension) becomes
// a logical name. defaultName may be empty if there is no default.
func New(dir string, entries map[string]string, defaultName string) (*Catalog, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if len(entries) == 0 {
		entries, err = scanDir(abs)
		if err != nil {
			return nil, err
		}
	} else {
		// copy: the catalog must not alias caller-owned config maps
		cp := make(map[string]string, len(entries))
		for k, v := range entries {
			cp[k] = v
		}
		entries = cp
	}
	if defaultName != "" {
		if _, ok := entries[defaultName]; !ok {
			return nil, fmt.Errorf("default model %q not in catalog", defaultName)
		}
	}
	return &Catalog{dir: abs, entries: entries, defaultName: defaultName}, nil
}

// scanDir builds entries from *.bin files in dir: "ggml-base.bin" gets
// logical name "ggml-base".
func scanDir(dir string) (map[string]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read models dir: %w", err)
	}
	entries := make(map[string]string)
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".bin") {
			continue
		}
		entries[strings.TrimSuffix(name, filepath.Ext(name))] = name
	}
	return entries, nil
}

// Dir returns the absolute models directory.
func (c *Catalog) Dir() string { return c.dir }

// DefaultName returns the configured default logical name, or "".
func (c *Catalog) DefaultName() string { return c.defaultName }

// Resolve maps a logical name to a Model. Empty name selects the
// default. The second return is false when the name (or the default,
// for empty input) is unknown.
func (c *Catalog) Resolve(name string) (types.Model, bool) {
	if name == "" {
		name = c.defaultName
		if name == "" {
			return types.Model{}, false
		}
	}
	file, ok := c.entries[name]
	if !ok {
		return types.Model{}, false
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, file)
	}
	return types.Model{Name: name, FileName: file, Path: path}, true
}

// Available returns the catalog entries whose backing file currently
// exists on disk, sorted by logical name.
func (c *Catalog) Available() []types.Model {
	out := make([]types.Model, 0, len(c.entries))
	for name := range c.entries {
		mdl, _ := c.Resolve(name)
		if _, err := os.Stat(mdl.Path); err != nil {
			continue
		}
		out = append(out, mdl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AuxModelPaths returns the expected locations of the diarization
// segmentation and speaker-embedding models. Existence is not checked
// here; the executor stats them right before use.
func (c *Catalog) AuxModelPaths() (segmentPath, embeddingPath string) {
	return filepath.Join(c.dir, SegmentModelFile), filepath.Join(c.dir, EmbeddingModelFile)
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
