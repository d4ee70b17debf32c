package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
)

type subtreeResolver struct {
	collectionRepo vaultRepo.CollectionRepository
	logger         *slog.Logger
}

// NewSubtreeResolver creates a new subtree resolver
func NewSubtreeResolver(collectionRepo vaultRepo.CollectionRepository, logger *slog.Logger) vaultSvc.SubtreeResolver {
	return &subtreeResolver{
		collectionRepo: collectionRepo,
		logger:         logger,
	}
}

// DescendantIDs walks the tree breadth-first, one query per level.
// The visited set guarantees termination even if stored parent links form a cycle.
func (r *subtreeResolver) DescendantIDs(ctx context.Context, rootID string) ([]string, error) {
	if _, err := r.collectionRepo.GetByID(ctx, rootID); err != nil {
		return nil, err
	}

	ids := []string{rootID}
	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		links, err := r.collectionRepo.ListChildLinks(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("list children of %d collections: %w", len(frontier), err)
		}

		var next []string
		for _, link := range links {
			if visited[link.ID] {
				r.logger.Warn("collection cycle detected", "collection_id", link.ID, "parent_id", link.ParentID)
				continue
			}
			visited[link.ID] = true
			ids = append(ids, link.ID)
			next = append(next, link.ID)
		}
		frontier = next
	}

	return ids, nil
}

// Ancestors returns the chain from the top-level collection down to id.
// A repeated id stops the walk; a dangling parent ends it at the last found collection.
func (r *subtreeResolver) Ancestors(ctx context.Context, id string) ([]models.Collection, error) {
	var chain []models.Collection
	visited := make(map[string]bool)

	current := &id
	for current != nil {
		if visited[*current] {
			r.logger.Warn("collection cycle detected", "collection_id", *current)
			break
		}
		visited[*current] = true

		collection, err := r.collectionRepo.GetByID(ctx, *current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) && len(chain) > 0 {
				break
			}
			return nil, err
		}
		chain = append(chain, *collection)
		current = collection.ParentID
	}

	// Collected leaf-first; reverse to root-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// breadcrumb converts an ancestor chain into refs
func breadcrumb(chain []models.Collection) []models.CollectionRef {
	refs := make([]models.CollectionRef, len(chain))
	for i := range chain {
		refs[i] = chain[i].Ref()
	}
	return refs
}

// wouldCycle reports whether moving collection id under newParentID would make
// it its own ancestor
func wouldCycle(ctx context.Context, subtree vaultSvc.SubtreeResolver, id, newParentID string) (bool, error) {
	if id == newParentID {
		return true, nil
	}
	chain, err := subtree.Ancestors(ctx, newParentID)
	if err != nil {
		return false, err
	}
	for _, c := range chain {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}
