// Package match resolves free-text tokens to commands and in-room entities,
// tolerating typos, partial words, and pluralization.
//
// Resolution is a strict cascade: exact match, then prefix, then substring,
// then a scored fuzzy blend of Levenshtein similarity and Jaro-Winkler.
// Pure edit distance over-triggers on short tokens and pure substring
// matching misses typos; the blend trades those failure modes against
// each other.
package match

import "strings"

// Thresholds per resolution context. Centralized here so call sites never
// carry inline magic numbers.
const (
	// ThresholdObject accepts fuzzy object/item disambiguation.
	ThresholdObject = 0.55
	// ThresholdNPC is lower: player-typed names are looser than object nouns.
	ThresholdNPC = 0.45
	// ThresholdKeyword classifies short mode keywords (objects/people/items).
	ThresholdKeyword = 0.6
	// ThresholdCrossRoom is stricter when matching outside the current room.
	ThresholdCrossRoom = 0.6
)

// Candidate is one matchable entry: an entity id plus the display fields a
// player might type.
type Candidate struct {
	ID     string
	Fields []string
}

// tokenSimilarity maps input against one candidate field on a 0..1 scale,
// biased toward substring and per-token prefix hits, then blended with
// Jaro-Winkler for robustness.
func tokenSimilarity(input, field string) float64 {
	a := Normalize(input)
	b := Normalize(field)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	var best float64
	if strings.Contains(b, a) {
		best = minF(0.95, 0.4+minF(float64(len(a))*0.05, 0.45))
	}
	for _, tok := range strings.Fields(b) {
		if strings.HasPrefix(tok, a) {
			best = maxF(best, minF(0.8, 0.2+minF(float64(len(a))*0.06, 0.5)))
		}
		if d := Levenshtein(a, tok); d <= 2 {
			best = maxF(best, 0.7-float64(d)*0.1)
		}
	}
	return maxF(best, JaroWinkler(a, b))
}

// Score returns the best field score for a candidate.
func Score(input string, c Candidate) float64 {
	var best float64
	for _, f := range c.Fields {
		if s := tokenSimilarity(input, f); s > best {
			best = s
		}
	}
	return best
}

// Best runs the full cascade over candidates and returns the id of the
// single best match, or false when nothing clears the threshold.
// Ties break by candidate list order: the first listed wins. The result is
// deterministic for identical inputs.
//
// Postcondition: never mutates candidates.
func Best(input string, candidates []Candidate, threshold float64) (string, bool) {
	tok := Normalize(input)
	if tok == "" || len(candidates) == 0 {
		return "", false
	}

	// 1. Exact on id or any display field.
	for _, c := range candidates {
		if Normalize(c.ID) == tok {
			return c.ID, true
		}
		for _, f := range c.Fields {
			if Normalize(f) == tok {
				return c.ID, true
			}
		}
	}

	// 2. Prefix on display fields.
	for _, c := range candidates {
		for _, f := range c.Fields {
			if strings.HasPrefix(Normalize(f), tok) {
				return c.ID, true
			}
		}
	}

	// 3. Substring on display fields or id.
	for _, c := range candidates {
		if strings.Contains(Normalize(c.ID), tok) {
			return c.ID, true
		}
		for _, f := range c.Fields {
			if strings.Contains(Normalize(f), tok) {
				return c.ID, true
			}
		}
	}

	// 4. Scored fuzzy: strictly-greater comparison keeps the first listed
	// candidate on ties.
	bestIdx := -1
	var bestScore float64
	for i, c := range candidates {
		if s := Score(input, c); s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return "", false
	}
	return candidates[bestIdx].ID, true
}

// BestString matches against plain strings, returning the winning string.
func BestString(input string, options []string, threshold float64) (string, bool) {
	cands := make([]Candidate, len(options))
	for i, o := range options {
		cands[i] = Candidate{ID: o, Fields: []string{o}}
	}
	return Best(input, cands, threshold)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
