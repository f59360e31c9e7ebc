package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

// Starter returns the configuration written by `docstage init`.
func Starter(siteName string) RawConfig {
	if siteName == "" {
		siteName = "Documentation"
	}
	return RawConfig{
		Site:       &SiteConfig{Name: siteName},
		Assets:     DefaultAssetsDir,
		Components: ComponentsSetting{Dir: DefaultComponentsDir, Set: true},
		Imports: &ImportsConfig{
			Framework: DefaultFrameworkModule,
			Builtin:   DefaultBuiltinModule,
		},
		Exclude: []string{"drafts"},
	}
}

// Init writes a starter docstage.yaml into dir.
func Init(dir, siteName string, force bool) (string, error) {
	target := filepath.Join(dir, FileName)
	if _, err := os.Stat(target); err == nil && !force {
		return "", errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", target).Build()
	}

	data, err := yaml.Marshal(Starter(siteName))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "cannot encode starter configuration").Build()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot create directory").
			WithContext("path", dir).Build()
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot write configuration file").
			WithContext("path", target).Build()
	}
	return target, nil
}
