package config

import (
	"path"
	"path/filepath"
	"strings"
)

// Applicable is the cascade's contribution to one file's frontmatter.
type Applicable struct {
	Defaults     map[string]any
	FileSpecific map[string]any
}

// GetApplicable merges the frontmatter blocks of every config enclosing filePath, root to leaf,
// and looks up the file's entry in the nearest enclosing config's files block.
func GetApplicable(hierarchical []Node, sourceRoot, filePath string) Applicable {
	rel := relSlash(sourceRoot, filePath)
	fileDir := path.Dir(rel)
	if fileDir == "." {
		fileDir = ""
	}

	app := Applicable{Defaults: map[string]any{}}
	var nearest *Node
	for i := range hierarchical {
		n := &hierarchical[i]
		if !encloses(n.Dir, fileDir) {
			continue
		}
		app.Defaults = DeepMerge(app.Defaults, n.Raw.Frontmatter)
		nearest = n
	}

	if nearest != nil && len(nearest.Raw.Files) > 0 {
		key := strings.TrimPrefix(rel, nearest.Dir+"/")
		if nearest.Dir == "" {
			key = rel
		}
		if fs, ok := nearest.Raw.Files[key]; ok {
			app.FileSpecific = Clone(fs)
		}
	}
	if app.FileSpecific == nil {
		app.FileSpecific = map[string]any{}
	}
	return app
}

func encloses(dir, fileDir string) bool {
	return dir == "" || fileDir == dir || strings.HasPrefix(fileDir, dir+"/")
}

func relSlash(root, p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = rel
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}
