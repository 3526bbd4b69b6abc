package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
)

func candidate(terms ...string) Candidate {
	return Candidate{ItemID: id.New(), Terms: terms}
}

func TestResolveExactBeatsPrefix(t *testing.T) {
	r := NewResolver()
	vodka := candidate("House Vodka")
	vodkaCitron := candidate("House Vodka Citron")

	m, err := r.Resolve("house vodka", []Candidate{vodkaCitron, vodka})
	require.NoError(t, err)
	assert.Equal(t, vodka.ItemID, m.ItemID)
	assert.Equal(t, "House Vodka", m.Term)
	assert.Equal(t, 1.0, m.Score)
}

func TestResolveByAlias(t *testing.T) {
	r := NewResolver()
	c := Candidate{ItemID: id.New(), Terms: []string{"Smirnoff Red Label 70cl", "smirnoff", "red label"}}

	m, err := r.Resolve("Smirnoff", []Candidate{c, candidate("Absolut Blue")})
	require.NoError(t, err)
	assert.Equal(t, c.ItemID, m.ItemID)
	assert.Equal(t, "smirnoff", m.Term)
}

func TestResolveTokenOverlap(t *testing.T) {
	r := NewResolver()
	oj := candidate("Fresh Orange Juice 1L")
	cola := candidate("Cola 330ml")

	// "orange juice" covers 2/2 spoken tokens of the juice term
	m, err := r.Resolve("orange juice", []Candidate{cola, oj})
	require.NoError(t, err)
	assert.Equal(t, oj.ItemID, m.ItemID)
}

func TestResolveNormalizesPunctuation(t *testing.T) {
	r := NewResolver()
	c := candidate("O'Brien's Irish Cream")

	// Apostrophes fold to spaces on both sides
	m, err := r.Resolve("o brien s irish cream", []Candidate{c})
	require.NoError(t, err)
	assert.Equal(t, c.ItemID, m.ItemID)
	assert.Equal(t, 1.0, m.Score)
}

func TestResolveNoMatch(t *testing.T) {
	r := NewResolver()
	cands := []Candidate{candidate("House Vodka"), candidate("Merlot 75cl")}

	_, err := r.Resolve("chartreuse", cands)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoMatch))

	_, err = r.Resolve("   ", cands)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoMatch))

	_, err = r.Resolve("vodka", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoMatch))
}

func TestResolveAmbiguous(t *testing.T) {
	r := NewResolver()
	gin := candidate("House Gin")
	vodka := candidate("House Vodka")

	// Both are prefix matches for the bare brand word
	_, err := r.Resolve("house", []Candidate{gin, vodka})
	require.True(t, apperror.IsCode(err, apperror.CodeAmbiguousItem))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	names, ok := appErr.Details["candidates"].([]string)
	require.True(t, ok)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "House Gin")
	assert.Contains(t, names, "House Vodka")
}

func TestResolveMarginSeparatesTiers(t *testing.T) {
	r := NewResolver()
	exact := candidate("Lager")
	prefixed := candidate("Lager Keg 50L")

	// Exact at 1.0 clears the prefix match at 0.9 by exactly the margin
	m, err := r.Resolve("lager", []Candidate{prefixed, exact})
	require.NoError(t, err)
	assert.Equal(t, exact.ItemID, m.ItemID)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"House Vodka", "house vodka"},
		{"  double   spaced  ", "double spaced"},
		{"O'Brien's", "o brien s"},
		{"70cl / 700ml", "70cl 700ml"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), "input %q", tt.in)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		needle string
		term   string
		want   float64
	}{
		{"exact", "house vodka", "house vodka", 1.0},
		{"prefix of term", "house", "house vodka", 0.9},
		{"term is prefix of needle", "house vodka 70cl", "house vodka", 0.9},
		{"full token coverage", "vodka house", "house vodka", 0.8},
		{"half token coverage", "smirnoff vodka", "house vodka", 0.4},
		{"no overlap", "rum", "house vodka", 0},
		{"empty term", "rum", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, score(tt.needle, tt.term), 1e-9)
		})
	}
}
