package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snipvault/internal/config"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/domain/repositories"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type collectionService struct {
	collectionRepo vaultRepo.CollectionRepository
	subtree        vaultSvc.SubtreeResolver
	resolver       vaultSvc.PermissionResolver
	txManager      repositories.TransactionManager
	logger         *slog.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	collectionRepo vaultRepo.CollectionRepository,
	subtree vaultSvc.SubtreeResolver,
	resolver vaultSvc.PermissionResolver,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) vaultSvc.CollectionService {
	return &collectionService{
		collectionRepo: collectionRepo,
		subtree:        subtree,
		resolver:       resolver,
		txManager:      txManager,
		logger:         logger,
	}
}

// CreateCollection creates a collection owned by the caller. A parent must be
// one of the caller's own collections.
func (s *collectionService) CreateCollection(ctx context.Context, userID string, req *vaultSvc.CreateCollectionRequest) (*models.CollectionView, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxCollectionNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.ParentID != nil {
		if err := s.requireParent(ctx, userID, *req.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	collection := &models.Collection{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.collectionRepo.Create(ctx, collection); err != nil {
		return nil, err
	}

	s.logger.Info("collection created",
		"id", collection.ID,
		"name", collection.Name,
		"parent_id", collection.ParentID,
		"owner_id", userID,
	)

	return s.view(ctx, collection, models.RankOwner)
}

// requireParent checks a prospective parent exists and belongs to the caller.
// A missing or foreign parent is invalid input rather than a lookup failure.
func (s *collectionService) requireParent(ctx context.Context, userID, parentID string) error {
	_, _, err := s.resolver.RequireCollection(ctx, userID, parentID, models.CapOwner)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: parent collection %s does not exist", domain.ErrValidation, parentID)
	}
	if errors.Is(err, domain.ErrForbidden) {
		return fmt.Errorf("%w: parent collection %s is not yours", domain.ErrValidation, parentID)
	}
	return err
}

// GetCollection retrieves a readable collection with its breadcrumb and path
func (s *collectionService) GetCollection(ctx context.Context, userID, id string) (*models.CollectionView, error) {
	collection, rank, err := s.resolver.RequireCollection(ctx, userID, id, models.CapRead)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, collection, rank)
}

// view decorates a collection with rank, breadcrumb and display path. Members
// hold no rank on the owner's ancestors, so they only see the collection itself.
func (s *collectionService) view(ctx context.Context, collection *models.Collection, rank models.Rank) (*models.CollectionView, error) {
	crumbs := []models.CollectionRef{collection.Ref()}
	if rank.IsOwner() && collection.ParentID != nil {
		chain, err := s.subtree.Ancestors(ctx, collection.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve breadcrumb: %w", err)
		}
		crumbs = breadcrumb(chain)
	}

	view := &models.CollectionView{
		Collection: *collection,
		Rank:       rank,
		Breadcrumb: crumbs,
	}
	view.Path = models.BuildPath(crumbs)
	return view, nil
}

// ListCollections lists owned collections followed by those shared with the caller
func (s *collectionService) ListCollections(ctx context.Context, userID string) ([]models.CollectionView, error) {
	owned, err := s.collectionRepo.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.collectionRepo.ListShared(ctx, userID)
	if err != nil {
		return nil, err
	}

	paths := ownedPaths(owned)
	views := make([]models.CollectionView, 0, len(owned)+len(shared))
	for _, c := range owned {
		c.Path = paths[c.ID]
		views = append(views, models.CollectionView{Collection: c, Rank: models.RankOwner})
	}
	for _, sc := range shared {
		sc.Path = sc.Name
		views = append(views, models.CollectionView{
			Collection: sc.Collection,
			Rank:       models.RankFromMembership(sc.Permission),
		})
	}
	return views, nil
}

// ownedPaths computes display paths for a user's whole tree in memory, so a
// listing costs one query regardless of depth
func ownedPaths(collections []models.Collection) map[string]string {
	byID := make(map[string]*models.Collection, len(collections))
	for i := range collections {
		byID[collections[i].ID] = &collections[i]
	}

	paths := make(map[string]string, len(collections))
	for _, c := range collections {
		var names []string
		visited := make(map[string]bool)
		for cur := byID[c.ID]; cur != nil && !visited[cur.ID]; {
			visited[cur.ID] = true
			names = append(names, cur.Name)
			if cur.ParentID == nil {
				break
			}
			cur = byID[*cur.ParentID]
		}
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
		paths[c.ID] = strings.Join(names, "/")
	}
	return paths
}

// ListChildren lists the immediate children of a readable collection, each with
// the caller's own rank on it
func (s *collectionService) ListChildren(ctx context.Context, userID, id string) ([]models.CollectionView, error) {
	if _, _, err := s.resolver.RequireCollection(ctx, userID, id, models.CapRead); err != nil {
		return nil, err
	}

	children, err := s.collectionRepo.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]models.CollectionView, 0, len(children))
	for _, child := range children {
		rank, err := s.resolver.CollectionRank(ctx, userID, child.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, models.CollectionView{Collection: child, Rank: rank})
	}
	return views, nil
}

// UpdateCollection renames, re-describes or moves a collection. A move that
// would place the collection under itself or a descendant is rejected before
// anything is written.
func (s *collectionService) UpdateCollection(ctx context.Context, userID, id string, req *vaultSvc.UpdateCollectionRequest) (*models.CollectionView, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxCollectionNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var updated *models.Collection
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		collection, _, err := s.resolver.RequireCollection(txCtx, userID, id, models.CapOwner)
		if err != nil {
			return err
		}

		if req.Name != nil {
			collection.Name = *req.Name
		}
		if req.Description != nil {
			collection.Description = emptyToNil(req.Description)
		}
		if req.Icon != nil {
			collection.Icon = emptyToNil(req.Icon)
		}

		if req.ParentID.Present {
			newParent := emptyToNil(req.ParentID.Value)
			if newParent != nil {
				if err := s.requireParent(txCtx, userID, *newParent); err != nil {
					return err
				}
				cycle, err := wouldCycle(txCtx, s.subtree, id, *newParent)
				if err != nil {
					return fmt.Errorf("check cycle: %w", err)
				}
				if cycle {
					return &domain.CycleError{CollectionID: id, ParentID: *newParent}
				}
			}
			s.logger.Debug("moving collection", "id", id, "from", collection.ParentID, "to", newParent)
			collection.ParentID = newParent
		}

		collection.UpdatedAt = time.Now()
		if err := s.collectionRepo.Update(txCtx, collection); err != nil {
			return err
		}
		updated = collection
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection updated", "id", id, "name", updated.Name)
	return s.view(ctx, updated, models.RankOwner)
}

// DeleteCollection deletes a collection that holds no snippets and no children
func (s *collectionService) DeleteCollection(ctx context.Context, userID, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.resolver.RequireCollection(txCtx, userID, id, models.CapOwner); err != nil {
			return err
		}

		snippets, children, err := s.collectionRepo.CountContents(txCtx, id)
		if err != nil {
			return err
		}
		if snippets > 0 || children > 0 {
			return &domain.NotEmptyError{CollectionID: id, Snippets: snippets, Children: children}
		}

		return s.collectionRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("collection deleted", "id", id, "owner_id", userID)
	return nil
}

// emptyToNil normalizes "" to nil for optional references and text fields
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
