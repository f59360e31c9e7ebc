package frontmatterops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

func TestRead(t *testing.T) {
	fields, body, had, style, err := Read([]byte("# Title\n\nHello\n"))
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fields)
	require.Equal(t, "# Title\n\nHello\n", string(body))
	require.Equal(t, "\n", style.Newline)

	fields, body, had, _, err = Read([]byte("---\ntags:\n  - one\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []any{"one"}, fields["tags"])
	require.Equal(t, "# Title\n", string(body))

	_, _, _, _, err = Read([]byte("---\ntitle: [unclosed\n---\n# Title\n"))
	require.Error(t, err)

	_, _, had, _, err = Read([]byte("---\nkey: value\n# Title\n"))
	require.ErrorIs(t, err, frontmatter.ErrMissingClosingDelimiter)
	require.False(t, had)
}
