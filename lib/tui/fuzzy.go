// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// algo.Init fills fzf's ASCII character classes. Case-insensitive
// matching of uppercase text depends on them.
func init() {
	algo.Init("default")
}

// FuzzyResult is one fzf match. Score is zero for no match; Positions
// are rune offsets of the matched characters.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm,
// ignoring case. A nil slab allocates per call.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	lowered := make([]rune, len(pattern))
	for index, character := range pattern {
		lowered[index] = unicode.ToLower(character)
	}

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, false, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}

	matched := FuzzyResult{Score: result.Score}
	if positions != nil {
		matched.Positions = append([]int(nil), (*positions)...)
		sort.Ints(matched.Positions)
	}
	return matched
}

// Candidate is a searchable item.
type Candidate struct {
	Label string
	Value string
}

// Ranked is a candidate with its match.
type Ranked struct {
	Candidate
	FuzzyResult
}

// Rank matches every candidate against query and returns the matches,
// best first, at most limit of them (all when limit <= 0). Ties keep
// the candidates' order. An empty query returns candidates unranked.
func Rank(candidates []Candidate, query string, limit int) []Ranked {
	query = strings.TrimSpace(query)
	var ranked []Ranked
	if query == "" {
		for _, candidate := range candidates {
			ranked = append(ranked, Ranked{Candidate: candidate})
		}
	} else {
		pattern := []rune(query)
		slab := util.MakeSlab(100*1024, 2048)
		for _, candidate := range candidates {
			result := FuzzyMatch(candidate.Label, pattern, slab)
			if result.Score > 0 {
				ranked = append(ranked, Ranked{Candidate: candidate, FuzzyResult: result})
			}
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Score > ranked[j].Score
		})
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
