package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/domain/repositories"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// DefaultRebuildConcurrency bounds how many owners are rebuilt at once
const DefaultRebuildConcurrency = 4

type indexService struct {
	userRepo    vaultRepo.UserRepository
	snippetRepo vaultRepo.SnippetRepository
	blockRepo   vaultRepo.BlockRepository
	tagRepo     vaultRepo.TagRepository
	indexRepo   vaultRepo.SearchIndexRepository
	txManager   repositories.TransactionManager
	concurrency int
	logger      *slog.Logger
}

// NewIndexService creates the search index maintainer
func NewIndexService(
	userRepo vaultRepo.UserRepository,
	snippetRepo vaultRepo.SnippetRepository,
	blockRepo vaultRepo.BlockRepository,
	tagRepo vaultRepo.TagRepository,
	indexRepo vaultRepo.SearchIndexRepository,
	txManager repositories.TransactionManager,
	concurrency int,
	logger *slog.Logger,
) vaultSvc.IndexService {
	if concurrency <= 0 {
		concurrency = DefaultRebuildConcurrency
	}
	return &indexService{
		userRepo:    userRepo,
		snippetRepo: snippetRepo,
		blockRepo:   blockRepo,
		tagRepo:     tagRepo,
		indexRepo:   indexRepo,
		txManager:   txManager,
		concurrency: concurrency,
		logger:      logger,
	}
}

// UpsertDocument rebuilds the projection for one snippet from the content tables.
// Called inside the caller's transaction it joins it; any failure comes back as an
// IndexDesyncError so the triggering write rolls back with it.
func (s *indexService) UpsertDocument(ctx context.Context, snippetID string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Row lock serializes concurrent writers projecting the same snippet
		snippet, err := s.snippetRepo.GetForUpdate(txCtx, snippetID)
		if err != nil {
			return err
		}
		blocks, err := s.blockRepo.ListBySnippet(txCtx, snippetID)
		if err != nil {
			return err
		}
		tags, err := s.tagRepo.ListBySnippet(txCtx, snippetID)
		if err != nil {
			return err
		}

		names := make([]string, len(tags))
		for i, tag := range tags {
			names[i] = tag.Name
		}

		doc := models.NewSearchDocument(snippet, blocks, names)
		return s.indexRepo.Upsert(txCtx, &doc)
	})

	metrics.IndexOperations.WithLabelValues("upsert", metrics.Result(err)).Inc()
	if err != nil {
		return &domain.IndexDesyncError{SnippetID: snippetID, Err: err}
	}

	s.logger.Debug("search document upserted", "snippet_id", snippetID)
	return nil
}

// DeleteDocument removes a snippet's projection. Missing documents are fine.
func (s *indexService) DeleteDocument(ctx context.Context, snippetID string) error {
	err := s.indexRepo.Delete(ctx, snippetID)
	metrics.IndexOperations.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return &domain.IndexDesyncError{SnippetID: snippetID, Err: err}
	}

	s.logger.Debug("search document deleted", "snippet_id", snippetID)
	return nil
}

// Rebuild regenerates documents straight from the content tables. Each snippet
// is re-projected in its own short transaction, then documents whose snippet is
// gone are removed, so re-running after a partial failure converges to the same
// state and ordinary writes keep flowing meanwhile. A rebuild of every owner
// also sweeps documents whose user has been deleted.
func (s *indexService) Rebuild(ctx context.Context, ownerID *string) (*vaultSvc.RebuildStats, error) {
	start := time.Now()

	var owners []string
	if ownerID != nil {
		if _, err := s.userRepo.GetByID(ctx, *ownerID); err != nil {
			return nil, err
		}
		owners = []string{*ownerID}
	} else {
		ids, err := s.userRepo.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list owners: %w", err)
		}
		owners = ids
	}

	stats := &vaultSvc.RebuildStats{Owners: len(owners)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, owner := range owners {
		g.Go(func() error {
			seen, written, orphans, err := s.rebuildOwner(gctx, owner)

			mu.Lock()
			stats.Snippets += seen
			stats.DocumentsWritten += written
			stats.OrphansRemoved += orphans
			mu.Unlock()

			if err != nil {
				return fmt.Errorf("rebuild owner %s: %w", owner, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ownerID == nil {
		var unowned int64
		unowned, err = s.indexRepo.DeleteUnowned(ctx)
		if err != nil {
			err = fmt.Errorf("sweep unowned documents: %w", err)
		}
		stats.OrphansRemoved += unowned
	}
	stats.Duration = time.Since(start)
	metrics.RebuildDuration.Observe(stats.Duration.Seconds())
	metrics.IndexOperations.WithLabelValues("rebuild", metrics.Result(err)).Inc()

	if err != nil {
		s.logger.Error("search index rebuild failed", "error", err, "written", stats.DocumentsWritten)
		return stats, err
	}

	s.logger.Info("search index rebuilt",
		"owners", stats.Owners,
		"snippets", stats.Snippets,
		"written", stats.DocumentsWritten,
		"orphans_removed", stats.OrphansRemoved,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (s *indexService) rebuildOwner(ctx context.Context, ownerID string) (seen, written int, orphans int64, err error) {
	snippetIDs, err := s.snippetRepo.ListIDsByAuthor(ctx, ownerID)
	if err != nil {
		return 0, 0, 0, err
	}

	for _, id := range snippetIDs {
		if err := ctx.Err(); err != nil {
			return seen, written, 0, err
		}
		seen++

		if err := s.UpsertDocument(ctx, id); err != nil {
			// Deleted since listing; its document is cleaned up below
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return seen, written, 0, err
		}
		written++
	}

	orphans, err = s.indexRepo.DeleteOrphans(ctx, ownerID)
	if err != nil {
		return seen, written, 0, err
	}

	s.logger.Debug("owner index rebuilt", "owner_id", ownerID, "snippets", seen, "orphans_removed", orphans)
	return seen, written, orphans, nil
}
