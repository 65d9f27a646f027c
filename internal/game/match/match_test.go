package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase", input: "Desk", want: "desk"},
		{name: "diacritics stripped", input: "café", want: "cafe"},
		{name: "punctuation to spaces", input: "night-watchman's log", want: "night watchman s log"},
		{name: "whitespace collapsed", input: "  old   desk  ", want: "old desk"},
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "!?.", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestBestCascade(t *testing.T) {
	candidates := []Candidate{
		{ID: "old_desk", Fields: []string{"old desk", "desk"}},
		{ID: "filing_cabinet", Fields: []string{"filing cabinet"}},
		{ID: "desk_lamp", Fields: []string{"desk lamp"}},
	}

	t.Run("exact id wins", func(t *testing.T) {
		id, ok := Best("old_desk", candidates, ThresholdObject)
		require.True(t, ok)
		assert.Equal(t, "old_desk", id)
	})

	t.Run("exact field beats prefix elsewhere", func(t *testing.T) {
		id, ok := Best("desk", candidates, ThresholdObject)
		require.True(t, ok)
		assert.Equal(t, "old_desk", id)
	})

	t.Run("prefix", func(t *testing.T) {
		id, ok := Best("fil", candidates, ThresholdObject)
		require.True(t, ok)
		assert.Equal(t, "filing_cabinet", id)
	})

	t.Run("substring", func(t *testing.T) {
		id, ok := Best("cabinet", candidates, ThresholdObject)
		require.True(t, ok)
		assert.Equal(t, "filing_cabinet", id)
	})

	t.Run("fuzzy typo", func(t *testing.T) {
		id, ok := Best("filng cabinet", candidates, ThresholdObject)
		require.True(t, ok)
		assert.Equal(t, "filing_cabinet", id)
	})

	t.Run("nothing clears threshold", func(t *testing.T) {
		_, ok := Best("xylophone", candidates, ThresholdObject)
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := Best("   ", candidates, ThresholdObject)
		assert.False(t, ok)
	})
}

func TestBestTieKeepsFirstListed(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Fields: []string{"watchman"}},
		{ID: "second", Fields: []string{"watchman"}},
	}

	// A typo forces the scored stage, where both candidates score equally.
	id, ok := Best("watchmna", candidates, ThresholdNPC)
	require.True(t, ok)
	assert.Equal(t, "first", id)
}

func TestBestString(t *testing.T) {
	options := []string{"objects", "people", "items"}

	id, ok := BestString("peple", options, ThresholdKeyword)
	require.True(t, ok)
	assert.Equal(t, "people", id)

	_, ok = BestString("zzzzzz", options, ThresholdKeyword)
	assert.False(t, ok)
}

func TestBestDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		candidates := make([]Candidate, n)
		for i := range candidates {
			candidates[i] = Candidate{
				ID:     rapid.StringMatching(`[a-z_]{1,12}`).Draw(t, "id"),
				Fields: []string{rapid.StringMatching(`[a-z ]{1,16}`).Draw(t, "field")},
			}
		}
		input := rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "input")

		id1, ok1 := Best(input, candidates, ThresholdObject)
		id2, ok2 := Best(input, candidates, ThresholdObject)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, id1, id2)

		if ok1 {
			found := false
			for _, c := range candidates {
				if c.ID == id1 {
					found = true
				}
			}
			assert.True(t, found, "winner must be one of the candidates")
		}
	})
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("desk", "desk"))
	assert.Equal(t, 1, Levenshtein("desk", "dusk"))
	assert.Equal(t, 4, Levenshtein("", "desk"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
}

func TestJaroWinklerBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[a-z]{0,10}`).Draw(t, "a")
		b := rapid.StringMatching(`[a-z]{0,10}`).Draw(t, "b")
		s := JaroWinkler(a, b)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	})
}
