package interfaces

import (
	"context"

	"trade-mentor/internal/types"
)

// VectorStore is an ephemeral similarity index over one transcript.
type VectorStore interface {
	// Index splits text into chunks and embeds them. Returns the chunk count.
	Index(ctx context.Context, text string) (int, error)
	// Search returns at most k passages ordered by similarity.
	Search(ctx context.Context, query string, k int) ([]types.Passage, error)
	Close()
}

// VectorStoreFactory creates a fresh store per request.
type VectorStoreFactory interface {
	New(ctx context.Context) (VectorStore, error)
}
