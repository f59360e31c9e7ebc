package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// Link is an optional convenience symlink created at Path pointing at Target, a path relative
// to the output root ("" or "." for the root itself).
type Link struct {
	Path   string
	Target string
}

// ParseLink reads PATH or PATH=TARGET.
func ParseLink(s string) (Link, error) {
	p, target, _ := strings.Cut(s, "=")
	if strings.TrimSpace(p) == "" {
		return Link{}, errors.ValidationError("link path must not be empty").WithContext("link", s).Build()
	}
	if filepath.IsAbs(target) || strings.HasPrefix(filepath.Clean(target), "..") {
		return Link{}, errors.ValidationError("link target must stay inside the output root").
			WithContext("link", s).Build()
	}
	return Link{Path: p, Target: target}, nil
}

// Manager owns the output root of a run.
type Manager struct {
	root string
}

// NewManager creates a manager for the output root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Prepare removes any previous content, re-creates the root and writes the marker. Callers
// must have passed Evaluate first.
func (m *Manager) Prepare(runID string) error {
	if err := SafeRemove(m.root); err != nil {
		return err
	}
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output root").
			WithContext("path", m.root).Fatal().Build()
	}
	if err := WriteMarker(m.root); err != nil {
		return err
	}
	slog.Info("Prepared output root", logfields.Path(m.root), logfields.RunID(runID))
	return nil
}

// CreateLinks creates the convenience links. Failures are logged and counted; an existing
// non-link file at a link path is never replaced.
func (m *Manager) CreateLinks(links []Link) int {
	failed := 0
	for _, l := range links {
		if err := m.createLink(l); err != nil {
			failed++
			slog.Warn("Convenience link not created", logfields.Path(l.Path), logfields.Error(err))
		}
	}
	return failed
}

func (m *Manager) createLink(l Link) error {
	target, err := filepath.Abs(filepath.Join(m.root, l.Target))
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid link target").
			WithContext("target", l.Target).Build()
	}
	if info, err := os.Lstat(l.Path); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return errors.SafetyError("link path exists and is not a symlink").WithContext("path", l.Path).Build()
		}
		if err := os.Remove(l.Path); err != nil {
			return linkErr(err, l.Path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o750); err != nil {
		return linkErr(err, l.Path)
	}
	if err := os.Symlink(target, l.Path); err != nil {
		return linkErr(err, l.Path)
	}
	slog.Debug("Created convenience link", logfields.Path(l.Path), logfields.Target(target))
	return nil
}

func linkErr(err error, p string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "cannot create link").WithContext("path", p).Build()
}
