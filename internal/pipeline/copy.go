package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return writeErr(err, dest)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return writeErr(err, dest)
	}
	return nil
}

// copyFile copies src to dest byte for byte, keeping the permission bits.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return writeErr(err, src)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return writeErr(err, dest)
	}

	// #nosec G304 -- src comes from walking the source root
	in, err := os.Open(src)
	if err != nil {
		return writeErr(err, src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return writeErr(err, dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return writeErr(err, dest)
	}
	if err := out.Close(); err != nil {
		return writeErr(err, dest)
	}
	return nil
}

func writeErr(err error, p string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to write output").
		WithContext("path", p).Fatal().Build()
}
