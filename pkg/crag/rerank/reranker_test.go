package rerank

import (
	"math"
	"testing"

	"crag-notes-be/pkg/crag"
)

func chunk(id string, score float64, text string) crag.RetrievedChunk {
	return crag.RetrievedChunk{Id: id, Score: score, Text: text}
}

func TestRerankEmptyInput(t *testing.T) {
	r := NewReranker()

	got := r.Rerank("anything", nil, 5)
	if len(got) != 0 {
		t.Errorf("Rerank(nil) returned %d chunks, want 0", len(got))
	}

	got = r.Rerank("anything", []crag.RetrievedChunk{}, 0)
	if len(got) != 0 {
		t.Errorf("Rerank(empty) returned %d chunks, want 0", len(got))
	}
}

func TestRerankBlendedScoreFormula(t *testing.T) {
	r := NewReranker()

	// Question tokens: {newton, second, law}. Chunk contains "newton" and
	// "law" -> overlap 2/3.
	in := []crag.RetrievedChunk{chunk("c1", 0.8, "Newton stated the law F=ma")}
	got := r.Rerank("Newton second law", in, 3)

	want := math.Round((0.75*0.8+0.25*(2.0/3.0))*1e6) / 1e6
	if got[0].Score != want {
		t.Errorf("blended score = %v, want %v", got[0].Score, want)
	}

	// Input chunk must not be mutated.
	if in[0].Score != 0.8 {
		t.Errorf("input chunk score mutated to %v", in[0].Score)
	}
}

func TestRerankOrderingAndLimit(t *testing.T) {
	r := NewReranker()

	tests := []struct {
		name    string
		topN    int
		wantLen int
	}{
		{"limit below input", 2, 2},
		{"limit above input", 10, 3},
		{"zero topN floors to one", 0, 1},
		{"negative topN floors to one", -4, 1},
	}

	candidates := []crag.RetrievedChunk{
		chunk("low", 0.1, "unrelated text entirely"),
		chunk("high", 0.9, "photosynthesis converts light energy"),
		chunk("mid", 0.5, "plants and light"),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rerank("photosynthesis light energy", candidates, tt.topN)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].Score < got[i].Score {
					t.Errorf("scores not non-increasing at %d: %v < %v", i, got[i-1].Score, got[i].Score)
				}
			}
			if got[0].Id != "high" {
				t.Errorf("top candidate = %s, want high", got[0].Id)
			}
		})
	}
}

func TestRerankStableTieBreak(t *testing.T) {
	r := NewReranker()

	// Identical scores and identical (zero) overlap: original order must
	// be preserved.
	candidates := []crag.RetrievedChunk{
		chunk("first", 0.5, "alpha"),
		chunk("second", 0.5, "beta"),
		chunk("third", 0.5, "gamma"),
	}

	got := r.Rerank("unrelated question words", candidates, 3)
	for i, id := range []string{"first", "second", "third"} {
		if got[i].Id != id {
			t.Errorf("position %d = %s, want %s", i, got[i].Id, id)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"What is F=ma?", []string{"what", "is", "f", "ma"}},
		{"  ", nil},
		{"Hello, WORLD!", []string{"hello", "world"}},
	}

	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLexicalOverlapNoQuestionTokens(t *testing.T) {
	if o := LexicalOverlap(nil, []string{"a", "b"}); o != 0 {
		t.Errorf("overlap with empty question = %v, want 0", o)
	}
}
