// Package manifest describes the output tree of a run and writes it as manifest.json.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

// FileName is the manifest's name at the output root.
const FileName = "manifest.json"

// Manifest is the aggregate record of one run. It carries no timestamps or run identifiers so
// unchanged input yields a byte-identical file.
type Manifest struct {
	Config     config.MasterConfig `json:"config"`
	Source     Source              `json:"source"`
	Docs       []Doc               `json:"docs"`
	Components Components          `json:"components"`
	CSS        CSS                 `json:"css"`
}

// Source identifies the input tree.
type Source struct {
	Revision string `json:"revision,omitempty"`
}

// Doc is one written document.
type Doc struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Format      string `json:"format"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Unlisted    bool   `json:"unlisted,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Partial     bool   `json:"partial,omitempty"`
}

// Components lists the discovered component files.
type Components struct {
	Directory string          `json:"directory,omitempty"`
	Items     []ComponentItem `json:"items"`
}

// ComponentItem is one component as written to the output tree.
type ComponentItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// CSS lists stylesheet paths relative to the assets directory.
type CSS struct {
	Items []string `json:"items"`
}

// ToJSON serializes the manifest with two-space indentation and a trailing newline.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Hash computes a deterministic hash of the documents, components and stylesheets. Watch mode
// uses it to tell subscribers whether a run changed anything.
func (m *Manifest) Hash() (string, error) {
	hashInput := struct {
		Revision   string     `json:"revision"`
		Docs       []Doc      `json:"docs"`
		Components Components `json:"components"`
		CSS        CSS        `json:"css"`
	}{
		Revision:   m.Source.Revision,
		Docs:       m.Docs,
		Components: m.Components,
		CSS:        m.CSS,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Write replaces <root>/manifest.json through a temporary file and rename.
func Write(root string, m *Manifest) error {
	data, err := m.ToJSON()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "cannot encode manifest").Build()
	}

	tmp, err := os.CreateTemp(root, ".manifest-*.json")
	if err != nil {
		return writeErr(err, root)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return writeErr(err, tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return writeErr(err, tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return writeErr(err, tmp.Name())
	}

	dest := filepath.Join(root, FileName)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return writeErr(err, dest)
	}
	return nil
}

func writeErr(err error, p string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to write manifest").
		WithContext("path", p).Fatal().Build()
}
