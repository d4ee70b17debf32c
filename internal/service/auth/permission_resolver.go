package auth

import (
	"context"
	"errors"
	"fmt"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
)

// RankResolver implements PermissionResolver from collection ownership and
// direct memberships. A membership grants access to exactly one collection:
// parents are never consulted, so sharing a collection does not leak its children
// or its ancestors.
type RankResolver struct {
	collectionRepo vaultRepo.CollectionRepository
	memberRepo     vaultRepo.MemberRepository
	snippetRepo    vaultRepo.SnippetRepository
}

// NewRankResolver creates a new rank-based permission resolver
func NewRankResolver(
	collectionRepo vaultRepo.CollectionRepository,
	memberRepo vaultRepo.MemberRepository,
	snippetRepo vaultRepo.SnippetRepository,
) vaultSvc.PermissionResolver {
	return &RankResolver{
		collectionRepo: collectionRepo,
		memberRepo:     memberRepo,
		snippetRepo:    snippetRepo,
	}
}

// CollectionRank returns the user's rank on a collection
func (a *RankResolver) CollectionRank(ctx context.Context, userID, collectionID string) (models.Rank, error) {
	collection, err := a.collectionRepo.GetByID(ctx, collectionID)
	if err != nil {
		return models.RankNone, err
	}
	return a.rankOn(ctx, collection, userID)
}

func (a *RankResolver) rankOn(ctx context.Context, collection *models.Collection, userID string) (models.Rank, error) {
	if collection.OwnerID == userID {
		return models.RankOwner, nil
	}

	membership, err := a.memberRepo.Get(ctx, collection.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return models.RankNone, nil
		}
		return models.RankNone, fmt.Errorf("check membership: %w", err)
	}
	return models.ResolveCollectionRank(collection, membership, userID), nil
}

// SnippetRank returns the user's rank on a snippet
func (a *RankResolver) SnippetRank(ctx context.Context, userID, snippetID string) (models.Rank, error) {
	snippet, err := a.snippetRepo.GetByID(ctx, snippetID)
	if err != nil {
		return models.RankNone, err
	}
	return a.snippetRankOn(ctx, snippet, userID)
}

func (a *RankResolver) snippetRankOn(ctx context.Context, snippet *models.Snippet, userID string) (models.Rank, error) {
	return models.ResolveSnippetRank(snippet, userID, func(collectionID string) (models.Rank, error) {
		rank, err := a.CollectionRank(ctx, userID, collectionID)
		if errors.Is(err, domain.ErrNotFound) {
			return models.RankNone, nil
		}
		return rank, err
	})
}

// RequireCollection loads a collection and checks the capability
func (a *RankResolver) RequireCollection(ctx context.Context, userID, collectionID string, need models.Capability) (*models.Collection, models.Rank, error) {
	collection, err := a.collectionRepo.GetByID(ctx, collectionID)
	if err != nil {
		return nil, models.RankNone, err
	}

	rank, err := a.rankOn(ctx, collection, userID)
	if err != nil {
		return nil, models.RankNone, err
	}
	if !need.Allows(rank) {
		return nil, rank, fmt.Errorf("%s access denied to collection %s: %w", need, collectionID, domain.ErrForbidden)
	}
	return collection, rank, nil
}

// RequireSnippet loads a snippet and checks the capability
func (a *RankResolver) RequireSnippet(ctx context.Context, userID, snippetID string, need models.Capability) (*models.Snippet, models.Rank, error) {
	snippet, err := a.snippetRepo.GetByID(ctx, snippetID)
	if err != nil {
		return nil, models.RankNone, err
	}

	rank, err := a.snippetRankOn(ctx, snippet, userID)
	if err != nil {
		return nil, models.RankNone, err
	}
	if !need.Allows(rank) {
		return nil, rank, fmt.Errorf("%s access denied to snippet %s: %w", need, snippetID, domain.ErrForbidden)
	}
	return snippet, rank, nil
}
