package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := New("Card", "Tabs")
	s.Add("Aside", "Card")

	require.Equal(t, 3, s.Len())
	require.True(t, s.Has("Tabs"))
	require.False(t, s.Has("tabs"))

	require.Equal(t, []string{"Aside", "Card", "Tabs"}, Sorted(s))
	require.Empty(t, Sorted(New[string]()))
}
