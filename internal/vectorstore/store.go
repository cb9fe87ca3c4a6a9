package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/textsplitter"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/types"
)

var (
	ErrClosed   = errors.New("vector store is closed")
	ErrNoChunks = errors.New("text produced no chunks")
)

// Factory hands out one in-memory store per request.
type Factory struct {
	embed        chromem.EmbeddingFunc
	chunkSize    int
	chunkOverlap int
}

var _ interfaces.VectorStoreFactory = (*Factory)(nil)

func NewFactory(embed chromem.EmbeddingFunc, chunkSize, chunkOverlap int) *Factory {
	return &Factory{embed: embed, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (f *Factory) New(_ context.Context) (interfaces.VectorStore, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("transcript-"+uuid.NewString(), nil, f.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &Store{
		db:  db,
		col: col,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(f.chunkSize),
			textsplitter.WithChunkOverlap(f.chunkOverlap),
		),
	}, nil
}

// Store wraps a single chromem collection. Not safe for concurrent use;
// each request owns its store.
type Store struct {
	db       *chromem.DB
	col      *chromem.Collection
	splitter textsplitter.RecursiveCharacter
}

func (s *Store) Index(ctx context.Context, text string) (int, error) {
	if s.col == nil {
		return 0, ErrClosed
	}

	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("failed to split text: %w", err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("chunk-%04d", i),
			Metadata: map[string]string{"position": strconv.Itoa(i)},
			Content:  chunk,
		})
	}
	if len(docs) == 0 {
		return 0, ErrNoChunks
	}

	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}
	return len(docs), nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]types.Passage, error) {
	if s.col == nil {
		return nil, ErrClosed
	}

	n := s.col.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := s.col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	passages := make([]types.Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, types.Passage{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return passages, nil
}

// Close drops the collection; later calls fail with ErrClosed.
func (s *Store) Close() {
	s.col = nil
	s.db = nil
}
