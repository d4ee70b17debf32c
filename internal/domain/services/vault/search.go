package vault

import (
	"context"
	"time"

	models "snipvault/internal/domain/models/vault"
)

// SearchService runs text searches over the caller's own snippets
type SearchService interface {
	Search(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResults, error)
}

// IndexService keeps search documents in step with snippet content.
// UpsertDocument and DeleteDocument expect to run inside the caller's transaction.
type IndexService interface {
	// UpsertDocument rebuilds and stores the document for one snippet
	UpsertDocument(ctx context.Context, snippetID string) error

	// DeleteDocument removes a snippet's document
	DeleteDocument(ctx context.Context, snippetID string) error

	// Rebuild regenerates every document of one owner, or of all owners when ownerID is nil
	Rebuild(ctx context.Context, ownerID *string) (*RebuildStats, error)
}

// RebuildStats summarizes a rebuild run
type RebuildStats struct {
	Owners           int           `json:"owners"`
	Snippets         int           `json:"snippets"`
	DocumentsWritten int           `json:"documents_written"`
	OrphansRemoved   int64         `json:"orphans_removed"`
	Duration         time.Duration `json:"duration_ns"`
}
