package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/effmap-pack/internal/model"
)

// ManifestFile is the name of the manifest written into the output folder.
const ManifestFile = "build-manifest.yaml"

// Manifest records what a build shipped next to the executable. It holds
// no timestamps or absolute paths, so repeated builds of the same inputs
// produce byte-identical manifests.
type Manifest struct {
	Name    string          `yaml:"name"`
	Entry   string          `yaml:"entry"`
	Backend string          `yaml:"backend"`
	Icon    bool            `yaml:"icon"`
	Files   []ManifestEntry `yaml:"files"`

	// Source is the git revision of the project, when it is a checkout.
	Source *model.SourceRevision `yaml:"source,omitempty"`
}

// ManifestEntry is one copied file.
type ManifestEntry struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
	Size   int64  `yaml:"size"`
}

// AddFile hashes the file at path and records it under its path relative
// to outDir.
func (m *Manifest) AddFile(outDir, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}

	rel, err := filepath.Rel(outDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	m.Files = append(m.Files, ManifestEntry{
		Path:   filepath.ToSlash(rel),
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	})
	return nil
}

// Write sorts the entries and writes the manifest into outDir.
func (m *Manifest) Write(outDir string) (string, error) {
	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Path < m.Files[j].Path
	})

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(outDir, ManifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
