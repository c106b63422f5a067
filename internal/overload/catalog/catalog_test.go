package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Lookups(t *testing.T) {
	c := Default()

	squat, ok := c.Get("Squat")
	require.True(t, ok)
	assert.Equal(t, CategoryCompound, squat.Category)
	assert.Equal(t, 1.2, squat.BaselineFactor)
	assert.Equal(t, 4, squat.DefaultSetCount)

	assert.True(t, c.IsCompound("Deadlift"))
	assert.False(t, c.IsCompound("Lateral Raise"))
	assert.False(t, c.IsCompound("Something Unknown"))

	assert.Equal(t, 0.08, c.BaselineFactor("Lateral Raise"))
	assert.Equal(t, DefaultBaselineFactor, c.BaselineFactor("Something Unknown"))

	assert.Equal(t, 4, c.DefaultSetCount("Calf Raise"))
	assert.Equal(t, DefaultSetCount, c.DefaultSetCount("Something Unknown"))
}

func TestCatalog_Substitutions(t *testing.T) {
	c := Default()

	subs := c.Substitutions("Overhead Press")
	require.Len(t, subs, 2)
	assert.Contains(t, subs, "Seated Dumbbell Press")

	assert.Empty(t, c.Substitutions("Squat"))
}

func TestCatalog_BaselineFactorsSane(t *testing.T) {
	for name, e := range defaultEntries {
		assert.Greaterf(t, e.BaselineFactor, 0.0, "exercise %s", name)
		assert.LessOrEqualf(t, e.BaselineFactor, 2.0, "exercise %s", name)
		assert.Positivef(t, e.DefaultSetCount, "exercise %s", name)
	}
}
