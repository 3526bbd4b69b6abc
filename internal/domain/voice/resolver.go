// Package voice turns parsed spoken commands into stocktake count mutations.
// Transcription and parsing happen upstream; this adapter only resolves the
// spoken item identifier and forwards the count through the same path manual
// entry uses.
package voice

import (
	"sort"
	"strings"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
)

// Candidate is one item offered to the matcher: its catalog terms (name plus
// aliases) pre-normalized by the caller or raw.
type Candidate struct {
	ItemID id.ID
	Terms  []string
}

// Match is a resolved candidate with its winning term and score.
type Match struct {
	ItemID id.ID   `json:"itemId"`
	Term   string  `json:"term"`
	Score  float64 `json:"score"`
}

const (
	scoreExact  = 1.0
	scorePrefix = 0.9
	// Token-overlap scores scale within this weight by how much of the
	// utterance the term covers
	scoreTokenWeight = 0.8

	// matchFloor is the minimum score considered a match at all
	matchFloor = 0.5

	// ambiguityMargin: a runner-up from a different item scoring closer
	// than this to the best makes the utterance ambiguous
	ambiguityMargin = 0.1
)

// Resolver scores an utterance against candidate items.
// Tiers: exact match beats prefix beats token overlap. Resolution never
// guesses: close calls are surfaced as AmbiguousItem for the operator.
type Resolver struct {
	floor  float64
	margin float64
}

// NewResolver creates a resolver with the standard floor and margin.
func NewResolver() *Resolver {
	return &Resolver{floor: matchFloor, margin: ambiguityMargin}
}

// Resolve picks the best candidate for the utterance.
// Returns NoMatch when nothing scores above the floor, AmbiguousItem when
// two different items score within the ambiguity margin.
func (r *Resolver) Resolve(utterance string, candidates []Candidate) (Match, error) {
	needle := normalize(utterance)
	if needle == "" {
		return Match{}, apperror.NewNoMatch(utterance)
	}

	matches := make([]Match, 0, 4)
	for _, c := range candidates {
		best := Match{ItemID: c.ItemID}
		for _, term := range c.Terms {
			sc := score(needle, normalize(term))
			if sc > best.Score {
				best.Score = sc
				best.Term = term
			}
		}
		if best.Score >= r.floor {
			matches = append(matches, best)
		}
	}

	if len(matches) == 0 {
		return Match{}, apperror.NewNoMatch(utterance)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > 1 && matches[0].Score-matches[1].Score < r.margin {
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			if matches[0].Score-m.Score < r.margin {
				names = append(names, m.Term)
			}
		}
		return Match{}, apperror.NewAmbiguousItem(utterance, names)
	}

	return matches[0], nil
}

// score rates how well a spoken needle matches one catalog term.
func score(needle, term string) float64 {
	if term == "" {
		return 0
	}
	if needle == term {
		return scoreExact
	}
	if strings.HasPrefix(term, needle) || strings.HasPrefix(needle, term) {
		return scorePrefix
	}

	needleTokens := strings.Fields(needle)
	termTokens := strings.Fields(term)
	if len(needleTokens) == 0 {
		return 0
	}
	termSet := make(map[string]struct{}, len(termTokens))
	for _, t := range termTokens {
		termSet[t] = struct{}{}
	}
	shared := 0
	for _, t := range needleTokens {
		if _, ok := termSet[t]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(len(needleTokens)) * scoreTokenWeight
}

// normalize lowercases and strips punctuation so "O'Briens" spoken as
// "o briens" still lines up.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
