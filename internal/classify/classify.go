package classify

import (
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/patterns"
	"git.home.luguber.info/inful/docstage/internal/util/sets"
)

// Result is the classification of one document.
type Result struct {
	Format          patterns.Format
	NeedsConversion bool
}

// Classifier applies a primary matcher and falls back to a second one when it fails.
type Classifier struct {
	Primary  Matcher
	Fallback Matcher
}

// New returns the structural classifier with a textual fallback.
func New() *Classifier {
	return &Classifier{Primary: Structural{}, Fallback: Textual{}}
}

// Classify decides the format of content, which carried extension ext in the source tree.
// Documents already in a rich format keep it and always go through their converter.
func (c *Classifier) Classify(content []byte, ext string) Result {
	if f, ok := patterns.FormatForExt(ext); ok && f.Rich() {
		return Result{Format: f, NeedsConversion: true}
	}

	body := bodyOf(content)
	if c.Names(body).Len() > 0 {
		return Result{Format: patterns.FormatComponent, NeedsConversion: true}
	}
	if c.Has(body) {
		return Result{Format: patterns.FormatTag, NeedsConversion: true}
	}
	return Result{Format: patterns.FormatPlain}
}

// ClassifyFile is Classify with the extension taken from path.
func (c *Classifier) ClassifyFile(path string, content []byte) Result {
	return c.Classify(content, filepath.Ext(path))
}

// Names returns the custom element names used in body.
func (c *Classifier) Names(body []byte) sets.Set[string] {
	names, err := c.Primary.Names(body)
	if err == nil {
		return names
	}
	slog.Debug("Structural component scan failed, using fallback", logfields.Error(err))
	names, err = c.Fallback.Names(body)
	if err != nil {
		return sets.New[string]()
	}
	return names
}

// Has reports structured-tag syntax in body.
func (c *Classifier) Has(body []byte) bool {
	has, err := c.Primary.Has(body)
	if err == nil {
		return has
	}
	slog.Debug("Structural tag scan failed, using fallback", logfields.Error(err))
	has, err = c.Fallback.Has(body)
	return err == nil && has
}

func bodyOf(content []byte) []byte {
	_, body, _, _, err := frontmatter.Split(content)
	if err != nil {
		return content
	}
	return body
}
