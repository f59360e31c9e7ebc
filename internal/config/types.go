package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

// FileName is the fixed name of a per-directory configuration file.
const FileName = "docstage.yaml"

const (
	DefaultAssetsDir       = "assets"
	DefaultComponentsDir   = "components"
	DefaultFrameworkModule = "@astrojs/starlight/components"
	DefaultBuiltinModule   = "~/components/docstage"
)

// SiteConfig holds site-level metadata. Only the root file's value is honored.
type SiteConfig struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ImportsConfig controls where auto-imported components come from.
type ImportsConfig struct {
	Framework string   `yaml:"framework,omitempty" json:"framework"`
	Builtin   string   `yaml:"builtin,omitempty" json:"builtin"`
	Builtins  []string `yaml:"builtins,omitempty" json:"builtins,omitempty"`
}

// ComponentsSetting is either a directory name or false.
type ComponentsSetting struct {
	Dir      string
	Disabled bool
	Set      bool
}

// UnmarshalYAML accepts a string directory name or a boolean.
func (c *ComponentsSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("components: expected a directory name or false at line %d", value.Line)
	}
	c.Set = true
	if value.Tag == "!!bool" {
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return err
		}
		c.Disabled = !enabled
		return nil
	}
	c.Dir = value.Value
	return nil
}

// MarshalYAML renders the setting back in its short form.
func (c ComponentsSetting) MarshalYAML() (any, error) {
	if c.Disabled {
		return false, nil
	}
	return c.Dir, nil
}

// IsZero lets omitempty drop an unset value.
func (c ComponentsSetting) IsZero() bool { return !c.Set }

// RawConfig is one parsed docstage.yaml file.
type RawConfig struct {
	Site        *SiteConfig               `yaml:"site,omitempty"`
	Sidebar     any                       `yaml:"sidebar,omitempty"`
	Assets      string                    `yaml:"assets,omitempty"`
	Components  ComponentsSetting         `yaml:"components,omitempty"`
	Imports     *ImportsConfig            `yaml:"imports,omitempty"`
	Exclude     []string                  `yaml:"exclude,omitempty"`
	Unlisted    []string                  `yaml:"unlisted,omitempty"`
	Hidden      []string                  `yaml:"hidden,omitempty"`
	Frontmatter map[string]any            `yaml:"frontmatter,omitempty"`
	Files       map[string]map[string]any `yaml:"files,omitempty"`
}

// UnmarshalYAML decodes the metadata sections the same way document metadata is decoded, so
// cascaded dates and quoted strings keep their YAML type.
func (r *RawConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain RawConfig
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = RawConfig(p)
	if value.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "frontmatter":
			fields, err := frontmatter.DecodeFields(val)
			if err != nil {
				return fmt.Errorf("frontmatter: %w", err)
			}
			r.Frontmatter = fields
		case "files":
			if val.Kind != yaml.MappingNode {
				continue
			}
			if r.Files == nil {
				r.Files = map[string]map[string]any{}
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				fields, err := frontmatter.DecodeFields(val.Content[j+1])
				if err != nil {
					return fmt.Errorf("files %q: %w", val.Content[j].Value, err)
				}
				r.Files[val.Content[j].Value] = fields
			}
		}
	}
	return nil
}

// Node is one discovered configuration file tagged by its directory.
type Node struct {
	// Dir is the slash path of the directory relative to the source root; "" for the root.
	Dir   string
	Path  string
	Depth int
	Raw   RawConfig
}

// MasterConfig is the folded, run-wide configuration.
type MasterConfig struct {
	Site          SiteConfig    `json:"site"`
	Sidebar       any           `json:"sidebar,omitempty"`
	AssetsDir     string        `json:"assets"`
	ComponentsDir string        `json:"components,omitempty"`
	Imports       ImportsConfig `json:"imports"`
	Exclude       []string      `json:"exclude,omitempty"`
	Unlisted      []string      `json:"unlisted,omitempty"`
	Hidden        []string      `json:"hidden,omitempty"`
}

// ComponentsEnabled reports whether component discovery should run.
func (m MasterConfig) ComponentsEnabled() bool { return m.ComponentsDir != "" }

// Cascade is the result of configuration discovery.
type Cascade struct {
	Master       MasterConfig
	Hierarchical []Node
}
