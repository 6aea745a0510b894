// Package index maintains the embedding index: it turns document chunks into
// vectors and serves cosine-similarity searches over a durable vector store.
//
// The store is pluggable (embedded chromem-go by default, PostgreSQL with
// pgvector as an alternative). Build is a full replace: the previous
// collection content is discarded atomically with respect to searches.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/askdoc/askdoc/internal/document"
	"github.com/askdoc/askdoc/internal/log"
)

var (
	// ErrEmbedding indicates the embedding model failed or returned vectors
	// with unexpected dimensionality.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexNotFound indicates no collection has been built yet.
	ErrIndexNotFound = errors.New("index not found")
)

// Record is one embedded chunk as persisted in the store. Seq preserves
// insertion order so equal-similarity hits rank deterministically.
type Record struct {
	ChunkID string
	Text    string
	Page    int
	Seq     int
	Vector  []float32
}

// Hit is a search result: a stored record with its cosine similarity to the
// query vector.
type Hit struct {
	Record     Record
	Similarity float32
}

// Store persists embedded records per collection. Implementations must make
// Replace atomic with respect to Search: a concurrent search sees either the
// old or the new content, never a mix.
//
// The interface is defined here, by its consumer.
type Store interface {
	// Replace discards the collection's previous content and stores the
	// given records.
	Replace(ctx context.Context, collection string, records []Record) error

	// Search returns up to k records most similar to the vector, ordered by
	// descending similarity. Returns ErrIndexNotFound when the collection
	// was never built.
	Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error)

	// Exists reports whether the collection has been built.
	Exists(ctx context.Context, collection string) (bool, error)

	// Count returns the number of records in the collection, or
	// ErrIndexNotFound when it was never built.
	Count(ctx context.Context, collection string) (int, error)
}

// embedBatchSize bounds how many chunks go into a single embedding request.
const embedBatchSize = 16

// Config carries the index parameters taken from application configuration.
type Config struct {
	Collection string
	Dimensions int
	// RateLimit is the embedding batch budget in requests per second during
	// Build. Zero disables limiting.
	RateLimit float64
}

// Index embeds chunks and queries and delegates persistence to a Store.
type Index struct {
	store      Store
	embedder   ai.Embedder
	collection string
	dimensions int
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates an Index. The embedder is the only component that talks to the
// embedding model; the store never embeds.
func New(store Store, embedder ai.Embedder, cfg Config, logger log.Logger) *Index {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Index{
		store:      store,
		embedder:   embedder,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Collection returns the collection name this index reads and writes.
func (ix *Index) Collection() string { return ix.collection }

// Build embeds all chunks in batches and replaces the collection content.
// Returns the number of records written. Any embedding failure or dimension
// mismatch aborts the build before the store is touched.
func (ix *Index) Build(ctx context.Context, chunks []document.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks to index", ErrEmbedding)
	}

	records := make([]Record, 0, len(chunks))
	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatchSize {
		batchEnd := min(batchStart+embedBatchSize, len(chunks))
		batch := chunks[batchStart:batchEnd]

		if err := ix.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}

		vectors, err := ix.embedBatch(ctx, batch)
		if err != nil {
			return 0, err
		}
		for i, vec := range vectors {
			chunk := batch[i]
			records = append(records, Record{
				ChunkID: chunk.ID,
				Text:    chunk.Text,
				Page:    chunk.Page,
				Seq:     batchStart + i,
				Vector:  vec,
			})
		}

		ix.logger.Debug("embedded chunk batch",
			"from", batchStart, "to", batchEnd, "total", len(chunks))
	}

	if err := ix.store.Replace(ctx, ix.collection, records); err != nil {
		return 0, fmt.Errorf("replacing collection %q: %w", ix.collection, err)
	}

	ix.logger.Info("index built", "collection", ix.collection, "records", len(records))
	return len(records), nil
}

// embedBatch embeds one batch of chunks and validates dimensionality.
func (ix *Index) embedBatch(ctx context.Context, batch []document.Chunk) ([][]float32, error) {
	docs := make([]*ai.Document, len(batch))
	for i, chunk := range batch {
		docs[i] = ai.DocumentFromText(chunk.Text, nil)
	}

	resp, err := ix.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			ErrEmbedding, len(resp.Embeddings), len(batch))
	}

	vectors := make([][]float32, len(batch))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != ix.dimensions {
			return nil, fmt.Errorf("%w: chunk %q has dimension %d, want %d",
				ErrEmbedding, batch[i].ID, len(emb.Embedding), ix.dimensions)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (ix *Index) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := ix.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned for query", ErrEmbedding)
	}
	vec := resp.Embeddings[0].Embedding
	if len(vec) != ix.dimensions {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrEmbedding, len(vec), ix.dimensions)
	}
	return vec, nil
}

// Search returns up to k hits ordered by descending similarity; equal scores
// keep insertion order. Fewer than k hits is normal for small collections.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	hits, err := ix.store.Search(ctx, ix.collection, vector, k)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.Seq < hits[j].Record.Seq
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Exists reports whether a collection has been built.
func (ix *Index) Exists(ctx context.Context) (bool, error) {
	return ix.store.Exists(ctx, ix.collection)
}

// Count returns the number of indexed records.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx, ix.collection)
}
