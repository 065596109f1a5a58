package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRandomIsDeterministic(t *testing.T) {
	g, err := NewGrid(32)
	require.NoError(t, err)

	a, err := Seed(g, PatternRandom, 7, 0.4)
	require.NoError(t, err)
	b, err := Seed(g, PatternRandom, 7, 0.4)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 1024)
	for _, c := range a {
		assert.LessOrEqual(t, c, uint32(1))
	}
	// 40% of 1024 with generous slack.
	assert.InDelta(t, 410, a.Population(), 120)
}

func TestSeedPatterns(t *testing.T) {
	g, err := NewGrid(16)
	require.NoError(t, err)

	glider, err := Seed(g, PatternGlider, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, glider.Population())

	blinker, err := Seed(g, PatternBlinker, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, blinker.Population())
	assert.Equal(t, uint32(1), blinker[g.Index(8, 8)])

	blank, err := Seed(g, PatternBlank, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, blank.Population())

	_, err = Seed(g, Pattern("spiral"), 0, 0)
	assert.Error(t, err)
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("glider")
	require.NoError(t, err)
	assert.Equal(t, PatternGlider, p)

	_, err = ParsePattern("nope")
	assert.Error(t, err)
}
