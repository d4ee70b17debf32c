package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/metrics"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type searchService struct {
	indexRepo vaultRepo.SearchIndexRepository
	logger    *slog.Logger
}

// NewSearchService creates a new search service
func NewSearchService(indexRepo vaultRepo.SearchIndexRepository, logger *slog.Logger) vaultSvc.SearchService {
	return &searchService{
		indexRepo: indexRepo,
		logger:    logger,
	}
}

// Search runs a query over the caller's own documents.
//
// A blank query without filters returns nothing; a blank query with filters
// lists the filtered snippets by recency. A non-blank query whose terms are all
// punctuation also returns nothing, since a query was given and nothing matched.
func (s *searchService) Search(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResults, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Status, validation.In(models.StatusDraft, models.StatusPublished)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	// Out-of-range limits are clamped rather than rejected
	req.ApplyDefaults()

	results := &models.SearchResults{Query: req.Query, Results: []models.SnippetSummary{}}

	terms := models.ParseQuery(req.Query)
	mode := "text"
	switch {
	case req.Query == "" && !req.HasFilters():
		return results, nil
	case req.Query != "" && len(terms) == 0:
		return results, nil
	case len(terms) == 0:
		mode = "filtered"
	}

	start := time.Now()
	found, err := s.indexRepo.Search(ctx, &models.IndexQuery{
		OwnerID:      userID,
		Terms:        terms,
		CollectionID: req.CollectionID,
		TagName:      req.TagName,
		Status:       req.Status,
		Limit:        req.Limit,
	})
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	metrics.SearchResults.Observe(float64(len(found)))

	if found != nil {
		results.Results = found
	}
	results.Total = len(found)

	s.logger.Debug("search executed",
		"user_id", userID,
		"terms", len(terms),
		"mode", mode,
		"results", results.Total,
	)
	return results, nil
}
