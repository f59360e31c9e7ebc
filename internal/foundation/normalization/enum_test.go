package normalization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

type color string

func colors() *Enum[color] {
	return NewEnum("color", map[string]color{"red": "r", "Blue": "b", "navy": "b"}, color("r"))
}

func TestEnum_Normalize(t *testing.T) {
	e := colors()
	require.Equal(t, color("b"), e.Normalize("  BLUE "))
	require.Equal(t, color("b"), e.Normalize("navy"))
	require.Equal(t, color("r"), e.Normalize("green"))
	require.Equal(t, []string{"blue", "navy", "red"}, e.Keys())
}

func TestEnum_Parse(t *testing.T) {
	e := colors()

	v, err := e.Parse("")
	require.NoError(t, err)
	require.Equal(t, color("r"), v)

	v, err = e.Parse("Navy")
	require.NoError(t, err)
	require.Equal(t, color("b"), v)

	_, err = e.Parse("green")
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, "unknown color", ce.Message())
	require.Equal(t, "blue, navy, red", ce.Context()["valid"])
}
