// Package config discovers the per-directory docstage.yaml files of a source tree and folds them
// into one MasterConfig plus the ordered list of directory-scoped nodes used for per-file
// frontmatter lookups.
package config
