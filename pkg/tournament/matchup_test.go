package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, "a|b", PairKey("a", "b"))
	assert.Equal(t, "a|b", PairKey("b", "a"), "key must not depend on argument order")
	assert.Equal(t, "song-01|song-10", PairKey("song-10", "song-01"))
}

func TestSplitPairKey(t *testing.T) {
	a, b, err := SplitPairKey("a|b")
	require.NoError(t, err)
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	_, _, err = SplitPairKey("nosplit")
	assert.Error(t, err)

	_, _, err = SplitPairKey("a|b|c")
	assert.Error(t, err)
}

func TestValidateSongID(t *testing.T) {
	assert.NoError(t, ValidateSongID("4uLU6hMCjMI75M1A2tKUQC"))
	assert.Error(t, ValidateSongID(""))
	assert.Error(t, ValidateSongID("bad|id"), "the separator cannot appear in an id")
}

func TestGenerateScopeMatchups(t *testing.T) {
	tests := []struct {
		name  string
		count int
		pairs int
	}{
		{"two songs", 2, 1},
		{"three songs", 3, 3},
		{"four songs", 4, 6},
		{"eight songs", 8, 28},
		{"single song", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := GenerateScopeMatchups(makeSongs(tt.count))
			assert.Len(t, m, tt.pairs)
			for key, done := range m {
				assert.False(t, done, "matchup %s must start incomplete", key)
			}
		})
	}
}

func TestGenerateMatchups(t *testing.T) {
	groups := GroupSongs(makeSongs(9)) // [8, 1]
	m := GenerateMatchups(groups)
	require.Len(t, m, 2)
	assert.Len(t, m[0], 28)
	assert.Len(t, m[1], 0, "a singleton group has no matchups")
}
