// Package normalization maps loosely written flag and config values onto enum types.
package normalization

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

// Enum resolves case- and whitespace-insensitive spellings to values of T. Several spellings
// may map to the same value.
type Enum[T comparable] struct {
	name     string
	values   map[string]T
	fallback T
	keys     []string
}

// NewEnum builds an Enum; fallback is what Normalize returns for blank or unknown input.
func NewEnum[T comparable](name string, values map[string]T, fallback T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		key := clean(k)
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	slices.Sort(e.keys)
	return e
}

// Lookup reports the value for raw, if any.
func (e *Enum[T]) Lookup(raw string) (T, bool) {
	v, ok := e.values[clean(raw)]
	return v, ok
}

// Normalize returns the value for raw or the fallback.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.Lookup(raw); ok {
		return v
	}
	return e.fallback
}

// Parse is Normalize for user input: blank yields the fallback, anything unknown is a
// validation error listing the accepted spellings.
func (e *Enum[T]) Parse(raw string) (T, error) {
	if clean(raw) == "" {
		return e.fallback, nil
	}
	if v, ok := e.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, errors.ValidationError("unknown "+e.name).
		WithContext("value", raw).
		WithContext("valid", strings.Join(e.keys, ", ")).
		Build()
}

// Keys lists accepted spellings in sorted order.
func (e *Enum[T]) Keys() []string { return slices.Clone(e.keys) }

func clean(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
