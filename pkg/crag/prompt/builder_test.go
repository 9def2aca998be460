package prompt

import (
	"strings"
	"testing"

	"crag-notes-be/pkg/crag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReturnsSystemHumanPair(t *testing.T) {
	b := NewBuilder()

	messages := b.Build(BuildInput{
		Question:    "What is Newton's second law?",
		SubjectName: "Physics",
	})

	require.Len(t, messages, 2)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleHuman, messages[1].Role)
}

func TestBuildSystemContainsRefusalSentinel(t *testing.T) {
	b := NewBuilder()

	messages := b.Build(BuildInput{Question: "q", SubjectName: "Physics"})

	// The system prompt must carry the exact refusal string so the model
	// can echo it back verbatim for sentinel matching.
	assert.Contains(t, messages[0].Content, "Not found in your notes for [Physics]")
	assert.Contains(t, messages[0].Content, `"found": true`)
}

func TestBuildHumanEmptyMemorySentinel(t *testing.T) {
	b := NewBuilder()

	messages := b.Build(BuildInput{Question: "q", SubjectName: "Physics"})

	assert.Contains(t, messages[1].Content, NoMemorySentinel)
}

func TestBuildHumanRendersMemoryTurns(t *testing.T) {
	b := NewBuilder()

	messages := b.Build(BuildInput{
		Question:    "q",
		SubjectName: "Physics",
		ThreadMemory: []crag.MemoryTurn{
			{Question: "earlier question", Answer: "earlier answer", CreatedAtIso: "2026-03-01T10:00:00Z"},
		},
	})

	human := messages[1].Content
	assert.Contains(t, human, "earlier question")
	assert.Contains(t, human, "earlier answer")
	assert.Contains(t, human, "2026-03-01T10:00:00Z")
	assert.NotContains(t, human, NoMemorySentinel)
}

func TestBuildHumanRendersChunksWithMetadata(t *testing.T) {
	b := NewBuilder()
	page := 12

	messages := b.Build(BuildInput{
		Question:    "What is F=ma?",
		SubjectName: "Physics",
		Chunks: []crag.RetrievedChunk{
			{
				Id:    "c1",
				Score: 0.873512,
				Text:  "Newton's second law states F=ma.",
				Metadata: crag.ChunkMetadata{
					FileName: "mechanics.pdf",
					Page:     &page,
					ChunkId:  "mechanics-3",
				},
			},
			{
				Id:       "c2",
				Score:    0.5,
				Text:     "No provenance on this one.",
				Metadata: crag.ChunkMetadata{ChunkId: "c2"},
			},
		},
	})

	human := messages[1].Content
	assert.Contains(t, human, "chunk_id=mechanics-3")
	assert.Contains(t, human, "file=mechanics.pdf")
	assert.Contains(t, human, "page=12")
	assert.Contains(t, human, "score=0.873512")
	assert.Contains(t, human, "Newton's second law states F=ma.")

	// Missing page renders as a dash, not a zero.
	assert.Contains(t, human, "chunk_id=c2 file= page=-")

	// Ordered sections: question before memory before context.
	qIdx := strings.Index(human, "Question:")
	mIdx := strings.Index(human, "<thread_memory>")
	cIdx := strings.Index(human, "<context>")
	assert.Less(t, qIdx, mIdx)
	assert.Less(t, mIdx, cIdx)
}
