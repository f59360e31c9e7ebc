package registry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	derrors "git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

// Asset is one stylesheet; RelativePath is a slash path relative to the discovery root.
type Asset struct {
	RelativePath string `json:"relativePath"`
}

// DiscoverCSS returns every stylesheet beneath dir sorted by relative path using plain byte
// comparison. This order is the load order. A missing directory yields no assets.
func DiscoverCSS(dir string, skip ...Skip) ([]Asset, error) {
	var assets []Asset
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !patterns.IsStylesheet(p) {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		if skipped(filepath.ToSlash(rel), skip) {
			return nil
		}
		assets = append(assets, Asset{RelativePath: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "stylesheet discovery failed").
			WithContext("path", dir).Build()
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].RelativePath < assets[j].RelativePath })
	return assets, nil
}
