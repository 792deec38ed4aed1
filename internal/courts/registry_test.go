package courts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

func TestGet(t *testing.T) {
	c, ok := Get("DELHI")
	require.True(t, ok)
	require.Equal(t, "Delhi High Court", c.Name)
	require.Equal(t, "26", c.StateCode)
	require.Equal(t, models.HighCourt, c.Type)

	c, ok = Get("bombay-nagpur")
	require.True(t, ok)
	require.Equal(t, "1", c.StateCode)
	require.Equal(t, "Nagpur", c.Bench)

	c, ok = Get("sci")
	require.True(t, ok)
	require.Equal(t, models.SupremeCourt, c.Type)

	_, ok = Get("narnia")
	require.False(t, ok)
}

func TestGetByName(t *testing.T) {
	c, ok := GetByName("allahabad high court, lucknow bench")
	require.True(t, ok)
	require.Equal(t, "allahabad-lucknow", c.Code)
}

func TestRegistryShape(t *testing.T) {
	require.Len(t, HighCourts(), 29)
	all := All()
	require.Len(t, all, 30)
	require.Equal(t, SupremeCourt, all[0])

	seen := map[string]bool{}
	for _, c := range all {
		require.False(t, seen[c.Code], "duplicate code %s", c.Code)
		seen[c.Code] = true
		require.NotEmpty(t, c.StateCode)
	}
}

func TestHighCourtsReturnsCopy(t *testing.T) {
	list := HighCourts()
	list[0].Name = "mutated"
	c, _ := Get("allahabad")
	require.Equal(t, "Allahabad High Court", c.Name)
}
