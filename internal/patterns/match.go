package patterns

import (
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Scope prefixes a glob declared in the config file of dir (slash path relative to the source
// root) so that it only applies beneath that directory.
func Scope(dir, pattern string) string {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" || dir == "." || pattern == "" {
		return pattern
	}

	negate := ""
	if strings.HasPrefix(pattern, "!") {
		negate = "!"
		pattern = pattern[1:]
	}

	body := strings.TrimPrefix(pattern, "/")
	if strings.Contains(strings.TrimSuffix(body, "/"), "/") || strings.HasPrefix(pattern, "/") {
		return negate + "/" + dir + "/" + body
	}
	return negate + "/" + dir + "/**/" + body
}

// Matcher tests slash paths relative to the source root against a compiled pattern list.
type Matcher struct {
	ignore *gitignore.GitIgnore
}

// NewMatcher compiles already-scoped patterns. An empty list yields a matcher that never matches.
func NewMatcher(patterns []string) *Matcher {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return &Matcher{}
	}
	return &Matcher{ignore: gitignore.CompileIgnoreLines(lines...)}
}

// Matches reports whether rel or any of its ancestor directories matches.
func (m *Matcher) Matches(rel string) bool {
	if m == nil || m.ignore == nil {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	for p := rel; p != "." && p != "" && p != "/"; p = path.Dir(p) {
		if m.ignore.MatchesPath(p) {
			return true
		}
	}
	return false
}
