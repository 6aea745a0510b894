package pipeline

import (
	"context"
	"fmt"

	"github.com/askdoc/askdoc/internal/index"
	"github.com/askdoc/askdoc/internal/log"
)

// Searcher is the slice of the embedding index the retriever needs.
// Defined here, by the consumer.
type Searcher interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, vector []float32, k int) ([]index.Hit, error)
}

// Retriever embeds a query, fetches the top-K most similar chunks and drops
// everything below the similarity threshold. An empty result is a valid
// outcome, not an error.
type Retriever struct {
	searcher  Searcher
	topK      int
	threshold float64
	logger    log.Logger
}

// NewRetriever wires the retriever to an index.
func NewRetriever(searcher Searcher, topK int, threshold float64, logger log.Logger) *Retriever {
	return &Retriever{
		searcher:  searcher,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve runs one retrieval pass for the query.
func (r *Retriever) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	result := RetrievalResult{Query: query}

	vector, err := r.searcher.EmbedQuery(ctx, query)
	if err != nil {
		return result, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.searcher.Search(ctx, vector, r.topK)
	if err != nil {
		return result, fmt.Errorf("searching index: %w", err)
	}

	// Stores report float32 similarities. Widening a score to float64 moves
	// it off the configured value (float64(float32(0.7)) < 0.7), so the
	// threshold is narrowed to float32 for the comparison instead.
	cutoff := float32(r.threshold)
	for _, hit := range hits {
		if hit.Similarity < cutoff {
			continue
		}
		result.Passages = append(result.Passages, RetrievedPassage{
			ChunkID: hit.Record.ChunkID,
			Text:    hit.Record.Text,
			Page:    hit.Record.Page,
			Score:   float64(hit.Similarity),
		})
	}

	r.logger.Debug("retrieval finished",
		"hits", len(hits),
		"retained", len(result.Passages),
		"threshold", r.threshold)
	return result, nil
}
