package rerank

import (
	"math"
	"sort"
	"strings"

	"crag-notes-be/pkg/crag"
)

// Weights for blending the vector similarity score with lexical overlap.
// The lexical signal is a cheap cross-encoder substitute: it corroborates
// the vector score with literal token evidence from the chunk text.
const (
	vectorWeight  = 0.75
	lexicalWeight = 0.25
)

// Reranker reorders retrieval candidates by blending the index similarity
// score with lexical token overlap against the question. It is pure and
// does no I/O.
type Reranker struct{}

func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank returns the top max(1, topN) candidates sorted by non-increasing
// blended score. The sort is stable, so candidates with equal blended
// scores keep their original relative order. An empty candidate set stays
// empty regardless of topN.
func (r *Reranker) Rerank(question string, candidates []crag.RetrievedChunk, topN int) []crag.RetrievedChunk {
	if len(candidates) == 0 {
		return []crag.RetrievedChunk{}
	}

	questionTokens := Tokenize(question)

	reranked := make([]crag.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		overlap := LexicalOverlap(questionTokens, Tokenize(c.Text))
		c.Score = round6(vectorWeight*c.Score + lexicalWeight*overlap)
		reranked[i] = c
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	limit := topN
	if limit < 1 {
		limit = 1
	}
	if limit > len(reranked) {
		limit = len(reranked)
	}
	return reranked[:limit]
}

// Tokenize lower-cases the input, strips non-alphanumeric characters and
// splits on whitespace.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, lowered)
	return strings.Fields(cleaned)
}

// LexicalOverlap computes |questionTokens ∩ chunkTokens| / |questionTokens|.
// Returns 0 when the question has no tokens.
func LexicalOverlap(questionTokens, chunkTokens []string) float64 {
	if len(questionTokens) == 0 {
		return 0
	}

	chunkSet := make(map[string]struct{}, len(chunkTokens))
	for _, t := range chunkTokens {
		chunkSet[t] = struct{}{}
	}

	seen := make(map[string]struct{}, len(questionTokens))
	matched := 0
	total := 0
	for _, t := range questionTokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		total++
		if _, ok := chunkSet[t]; ok {
			matched++
		}
	}

	return float64(matched) / float64(total)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
