package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"

	"github.com/askdoc/askdoc/internal/log"
)

// Metadata keys persisted per chromem document.
const (
	metaPage = "page"
	metaSeq  = "seq"
)

// ChromemStore persists records in an embedded chromem-go database on disk.
//
// Rebuilds are serialized against searches twice over: an in-process RWMutex
// covers goroutines sharing this store, and a file lock covers other
// processes pointed at the same directory.
type ChromemStore struct {
	db     *chromem.DB
	mu     sync.RWMutex
	fileLk *flock.Flock
	logger log.Logger
}

// NewChromemStore opens (or creates) the persistent database at path.
func NewChromemStore(path string, logger log.Logger) (*ChromemStore, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database at %s: %w", path, err)
	}
	return &ChromemStore{
		db:     db,
		fileLk: flock.New(filepath.Join(path, ".rebuild.lock")),
		logger: logger,
	}, nil
}

// noEmbedding rejects any attempt by chromem to compute vectors itself. All
// vectors arrive precomputed through Replace and Search.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("vectors must be computed by the index, not the store")
}

// Replace rebuilds the collection from scratch with the given records.
func (s *ChromemStore) Replace(ctx context.Context, collection string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLk.Lock(); err != nil {
		return fmt.Errorf("acquiring rebuild lock: %w", err)
	}
	defer func() {
		if err := s.fileLk.Unlock(); err != nil {
			s.logger.Warn("releasing rebuild lock", "error", err)
		}
	}()

	if err := s.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	col, err := s.db.CreateCollection(collection, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:        rec.ChunkID,
			Content:   rec.Text,
			Embedding: rec.Vector,
			Metadata: map[string]string{
				metaPage: strconv.Itoa(rec.Page),
				metaSeq:  strconv.Itoa(rec.Seq),
			},
		}
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("adding %d documents to %q: %w", len(docs), collection, err)
		}
	}

	s.logger.Debug("collection replaced", "collection", collection, "records", len(records))
	return nil
}

// Search queries the collection with a precomputed vector. chromem requires
// nResults <= Count, so k is clamped; an empty collection yields no hits.
func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return nil, fmt.Errorf("%w: collection %q has not been built", ErrIndexNotFound, collection)
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		rec := Record{
			ChunkID: res.ID,
			Text:    res.Content,
		}
		if page, err := strconv.Atoi(res.Metadata[metaPage]); err == nil {
			rec.Page = page
		}
		if seq, err := strconv.Atoi(res.Metadata[metaSeq]); err == nil {
			rec.Seq = seq
		}
		hits = append(hits, Hit{Record: rec, Similarity: res.Similarity})
	}
	return hits, nil
}

// Exists reports whether the collection is present on disk.
func (s *ChromemStore) Exists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.GetCollection(collection, noEmbedding) != nil, nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return 0, fmt.Errorf("%w: collection %q has not been built", ErrIndexNotFound, collection)
	}
	return col.Count(), nil
}
