package retrieval

import (
	"context"
	"fmt"

	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/internal/repository/contract"
	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/embedding"

	"github.com/google/uuid"
)

// ChunkSearcher is the slice of the chunk embedding repository the
// retriever needs. Satisfied by contract.ChunkEmbeddingRepository.
type ChunkSearcher interface {
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, subjectId uuid.UUID, threshold float64) ([]*contract.ScoredChunkEmbedding, error)
}

// Retriever embeds a question and fetches nearest-neighbour candidate
// chunks scoped to one subject. Read-only; embedding or index failures
// propagate unmodified.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	searcher          ChunkSearcher
	logger            logger.ILogger
}

func NewRetriever(embeddingProvider embedding.EmbeddingProvider, searcher ChunkSearcher, log logger.ILogger) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		searcher:          searcher,
		logger:            log,
	}
}

// Retrieve returns up to topK candidates in index similarity order. The
// similarity threshold is left fully open here; evidence quality is judged
// later by the confidence gate, after reranking.
func (r *Retriever) Retrieve(ctx context.Context, question string, subjectId uuid.UUID, topK int) ([]crag.RetrievedChunk, error) {
	embeddingRes, err := r.embeddingProvider.Generate(ctx, question, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := r.searcher.SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		topK,
		subjectId,
		-1.0,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	r.logger.Debug("Retriever", "Raw search results", map[string]interface{}{
		"subject_id": subjectId.String(),
		"count":      len(scored),
	})

	chunks := make([]crag.RetrievedChunk, 0, len(scored))
	for _, res := range scored {
		if res.Embedding == nil {
			continue
		}
		chunks = append(chunks, mapChunk(res))
	}

	return chunks, nil
}

// mapChunk converts a scored repository row into a pipeline chunk, keeping
// whatever provenance metadata the index stored. Incomplete metadata maps
// to zero values, not errors.
func mapChunk(res *contract.ScoredChunkEmbedding) crag.RetrievedChunk {
	e := res.Embedding

	chunkId := e.ChunkKey
	if chunkId == "" {
		chunkId = e.Id.String()
	}

	return crag.RetrievedChunk{
		Id:    e.Id.String(),
		Score: res.Similarity,
		Text:  e.Text,
		Metadata: crag.ChunkMetadata{
			FileName: e.FileName,
			Page:     e.Page,
			ChunkId:  chunkId,
		},
	}
}
