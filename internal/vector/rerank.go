package vector

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern keeps identifiers like "INV-55" and "PO-100" as single tokens.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func termFrequencies(text string) map[string]float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	total := float64(len(tokens))
	for tok := range tf {
		tf[tok] /= total
	}
	return tf
}

// lexicalSimilarity returns the cosine similarity between the term-frequency
// vectors of query and text. Range [0, 1]; 0 when either side has no tokens.
func lexicalSimilarity(query, text string) float64 {
	qtf := termFrequencies(query)
	ttf := termFrequencies(text)
	if len(qtf) == 0 || len(ttf) == 0 {
		return 0
	}
	var dot, qnorm, tnorm float64
	for tok, qv := range qtf {
		qnorm += qv * qv
		if tv, ok := ttf[tok]; ok {
			dot += qv * tv
		}
	}
	for _, tv := range ttf {
		tnorm += tv * tv
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(qnorm) * math.Sqrt(tnorm))
}

// rerank sorts candidate texts by descending lexical similarity to the query.
// The vector stage is a recall filter; this ordering is final. The sort is
// stable so ties keep their vector-retrieval order.
func rerank(query string, candidates []string) []string {
	type scored struct {
		text  string
		score float64
	}
	scoredCandidates := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredCandidates[i] = scored{text: c, score: lexicalSimilarity(query, c)}
	}
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].score > scoredCandidates[j].score
	})
	out := make([]string, len(candidates))
	for i, sc := range scoredCandidates {
		out[i] = sc.text
	}
	return out
}
