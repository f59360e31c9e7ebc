// Package patterns holds the canonical file classes used across docstage: content formats and
// their extensions, component and stylesheet sources, the README family, and directory-scoped
// glob matching for exclude/unlisted/hidden lists.
package patterns
