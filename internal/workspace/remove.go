package workspace

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// SafeRemove deletes root and everything beneath it. Symbolic links are removed as links and
// never followed. A missing root is not an error. When root itself is a link only the link
// goes.
func SafeRemove(root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return removeErr(err, root)
	}
	if info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
		if err := os.Remove(root); err != nil {
			return removeErr(err, root)
		}
		return nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return removeErr(err, root)
	}
	for _, e := range entries {
		p := filepath.Join(root, e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			slog.Debug("Removing symlink without following", logfields.Path(p))
		}
		if err := SafeRemove(p); err != nil {
			return err
		}
	}
	if err := os.Remove(root); err != nil {
		return removeErr(err, root)
	}
	return nil
}

func removeErr(err error, p string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove").
		WithContext("path", p).Fatal().Build()
}
