package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

// Check inspects a resolved target path and returns a fatal error when it must not be touched.
type Check func(target string) error

// criticalPaths are refused as targets regardless of ownership.
var criticalPaths = []string{
	"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib32", "/lib64", "/media",
	"/mnt", "/opt", "/proc", "/root", "/run", "/sbin", "/srv", "/sys", "/tmp", "/usr",
	"/var", "/Applications", "/Library", "/System", "/Users", "/Volumes", "/private",
}

// Evaluate resolves target and runs every check against it. The first failure wins.
func Evaluate(target string, checks ...Check) error {
	resolved, err := Resolve(target)
	if err != nil {
		return err
	}
	for _, check := range checks {
		if err := check(resolved); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the absolute, symlink-resolved form of p. Missing trailing components are
// kept as written below the deepest existing ancestor.
func Resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve path").
			WithContext("path", p).Fatal().Build()
	}

	existing, rest := abs, []string{}
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve path").
			WithContext("path", p).Fatal().Build()
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

// NotSource refuses a target equal to source.
func NotSource(source string) Check {
	return func(target string) error {
		src, err := Resolve(source)
		if err != nil {
			return err
		}
		if src == target {
			return errors.SafetyError("output root is the source directory").
				WithContext("path", target).Build()
		}
		return nil
	}
}

// NotAncestorOrDescendant refuses a target that contains source or lies inside it.
func NotAncestorOrDescendant(source string) Check {
	return func(target string) error {
		src, err := Resolve(source)
		if err != nil {
			return err
		}
		switch {
		case within(target, src):
			return errors.SafetyError("output root contains the source directory").
				WithContext("path", target).WithContext("source", src).Build()
		case within(src, target):
			return errors.SafetyError("output root lies inside the source directory").
				WithContext("path", target).WithContext("source", src).Build()
		}
		return nil
	}
}

// NotSystemCritical refuses the filesystem root, well-known system directories and the
// user's home directory.
func NotSystemCritical() Check {
	return func(target string) error {
		if IsSystemCritical(target) {
			return errors.SafetyError("output root is a system-critical path").
				WithContext("path", target).Build()
		}
		return nil
	}
}

// IsSystemCritical reports whether the resolved path is on the refusal list.
func IsSystemCritical(resolved string) bool {
	clean := filepath.Clean(resolved)
	if vol := filepath.VolumeName(clean); vol != "" && clean == vol+string(filepath.Separator) {
		return true
	}
	for _, c := range criticalPaths {
		if clean == filepath.FromSlash(c) {
			return true
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if h, err := Resolve(home); err == nil && h == clean {
			return true
		}
	}
	return false
}

// within reports whether child is strictly below parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
