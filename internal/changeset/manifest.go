package changeset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ManifestFileName is the sidecar manifest kept next to the Liquibase
// master changelog. The master file itself must remain plain Liquibase
// XML; run-level bookkeeping (which generated include came from which
// run and why) lives here instead.
const ManifestFileName = "changelog.meta.toml"

// ManifestEntry records one generated include file.
type ManifestEntry struct {
	File        string    `toml:"file"`
	Kind        string    `toml:"kind"` // "index" or "normalization"
	Author      string    `toml:"author"`
	GeneratedAt time.Time `toml:"generated_at"`
}

// Manifest is the full sidecar document.
type Manifest struct {
	Entries []ManifestEntry `toml:"entry"`
}

// Has reports whether file is already recorded.
func (m Manifest) Has(file string) bool {
	for _, e := range m.Entries {
		if e.File == file {
			return true
		}
	}
	return false
}

// LoadManifest reads the manifest next to masterPath. A missing file
// yields an empty manifest, not an error.
func LoadManifest(masterPath string) (Manifest, error) {
	path := filepath.Join(filepath.Dir(masterPath), ManifestFileName)
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("changeset: reading manifest: %w", err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("changeset: parsing manifest: %w", err)
	}
	return m, nil
}

// appendManifestEntry adds e to the sidecar manifest, idempotently on
// e.File, using the same temp-file-plus-rename write as the master
// changelog update.
func (w *Writer) appendManifestEntry(e ManifestEntry) error {
	dir := filepath.Dir(w.MasterPath)
	path := filepath.Join(dir, ManifestFileName)

	var m Manifest
	if data, err := w.readFile(path); err == nil {
		if err := toml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("changeset: parsing manifest: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("changeset: reading manifest: %w", err)
	}
	if m.Has(e.File) {
		return nil
	}
	m.Entries = append(m.Entries, e)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("changeset: encoding manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := w.writeFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("changeset: writing temp manifest: %w", err)
	}
	if err := w.rename(tmp, path); err != nil {
		return fmt.Errorf("changeset: renaming temp manifest: %w", err)
	}
	return nil
}
