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

type snippetService struct {
	snippetRepo    vaultRepo.SnippetRepository
	blockRepo      vaultRepo.BlockRepository
	tagRepo        vaultRepo.TagRepository
	collectionRepo vaultRepo.CollectionRepository
	userRepo       vaultRepo.UserRepository
	resolver       vaultSvc.PermissionResolver
	subtree        vaultSvc.SubtreeResolver
	indexer        vaultSvc.IndexService
	txManager      repositories.TransactionManager
	newPublicID    PublicIDGenerator
	logger         *slog.Logger
}

// NewSnippetService creates a new snippet service
func NewSnippetService(
	snippetRepo vaultRepo.SnippetRepository,
	blockRepo vaultRepo.BlockRepository,
	tagRepo vaultRepo.TagRepository,
	collectionRepo vaultRepo.CollectionRepository,
	userRepo vaultRepo.UserRepository,
	resolver vaultSvc.PermissionResolver,
	subtree vaultSvc.SubtreeResolver,
	indexer vaultSvc.IndexService,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) vaultSvc.SnippetService {
	return &snippetService{
		snippetRepo:    snippetRepo,
		blockRepo:      blockRepo,
		tagRepo:        tagRepo,
		collectionRepo: collectionRepo,
		userRepo:       userRepo,
		resolver:       resolver,
		subtree:        subtree,
		indexer:        indexer,
		txManager:      txManager,
		newPublicID:    NewPublicID,
		logger:         logger,
	}
}

var statusRule = validation.In(models.StatusDraft, models.StatusPublished)

// CreateSnippet creates a snippet, its blocks, its tag links and its search
// document in one transaction
func (s *snippetService) CreateSnippet(ctx context.Context, userID string, req *vaultSvc.CreateSnippetRequest) (*models.SnippetDetail, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Status == "" {
		req.Status = models.StatusDraft
	}
	if req.CollectionID != nil && *req.CollectionID == "" {
		req.CollectionID = nil
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxSnippetTitleLength)),
		validation.Field(&req.Status, statusRule),
		validation.Field(&req.Blocks, validation.Length(0, config.MaxBlocksPerSnippet)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validateBlocks(req.Blocks); err != nil {
		return nil, err
	}

	if req.CollectionID != nil {
		if err := s.requireTargetCollection(ctx, userID, *req.CollectionID); err != nil {
			return nil, err
		}
	}

	tagIDs, err := s.ownedTagIDs(ctx, userID, req.TagIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snippet := &models.Snippet{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  emptyToNil(req.Description),
		CollectionID: req.CollectionID,
		AuthorID:     userID,
		Status:       req.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if snippet.Status == models.StatusPublished {
			if err := s.assignPublicID(txCtx, snippet); err != nil {
				return err
			}
		}
		if err := s.snippetRepo.Create(txCtx, snippet); err != nil {
			return err
		}
		if err := s.blockRepo.ReplaceAll(txCtx, snippet.ID, toBlocks(snippet.ID, req.Blocks)); err != nil {
			return err
		}
		if err := s.tagRepo.ReplaceSnippetTags(txCtx, snippet.ID, tagIDs); err != nil {
			return err
		}
		return s.indexer.UpsertDocument(txCtx, snippet.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snippet created",
		"id", snippet.ID,
		"title", snippet.Title,
		"collection_id", snippet.CollectionID,
		"blocks", len(req.Blocks),
		"tags", len(tagIDs),
	)

	return s.detail(ctx, snippet, models.RankOwner)
}

// requireTargetCollection checks the caller may file a snippet into a collection.
// A collection that does not exist is invalid input.
func (s *snippetService) requireTargetCollection(ctx context.Context, userID, collectionID string) error {
	_, _, err := s.resolver.RequireCollection(ctx, userID, collectionID, models.CapWrite)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: collection %s does not exist", domain.ErrValidation, collectionID)
	}
	return err
}

// ownedTagIDs deduplicates tag ids and checks each belongs to ownerID
func (s *snippetService) ownedTagIDs(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		tag, err := s.tagRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: tag %s does not exist", domain.ErrValidation, id)
			}
			return nil, err
		}
		if tag.UserID != ownerID {
			return nil, fmt.Errorf("%w: tag %s does not exist", domain.ErrValidation, id)
		}
		result = append(result, id)
	}
	return result, nil
}

// assignPublicID picks an unused public id. Collisions are checked up front since
// a failed insert would abort the surrounding transaction.
func (s *snippetService) assignPublicID(ctx context.Context, snippet *models.Snippet) error {
	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		candidate, err := s.newPublicID()
		if err != nil {
			return err
		}
		_, err = s.snippetRepo.GetByPublicID(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			snippet.PublicID = &candidate
			return nil
		}
		if err != nil {
			return err
		}
		s.logger.Debug("public id collision", "attempt", attempt+1)
	}
	return fmt.Errorf("no free public id after %d attempts", publicIDAttempts)
}

// applyStatus moves a snippet between draft and published. Publishing keeps an
// existing public id stable; reverting to draft clears it.
func (s *snippetService) applyStatus(ctx context.Context, snippet *models.Snippet, status string) error {
	snippet.Status = status
	switch status {
	case models.StatusPublished:
		if snippet.PublicID == nil {
			return s.assignPublicID(ctx, snippet)
		}
	case models.StatusDraft:
		snippet.PublicID = nil
	}
	return nil
}

// GetSnippet retrieves a readable snippet
func (s *snippetService) GetSnippet(ctx context.Context, userID, id string) (*models.SnippetDetail, error) {
	snippet, rank, err := s.resolver.RequireSnippet(ctx, userID, id, models.CapRead)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, snippet, rank)
}

func (s *snippetService) detail(ctx context.Context, snippet *models.Snippet, rank models.Rank) (*models.SnippetDetail, error) {
	blocks, err := s.blockRepo.ListBySnippet(ctx, snippet.ID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagRepo.ListBySnippet(ctx, snippet.ID)
	if err != nil {
		return nil, err
	}

	detail := &models.SnippetDetail{
		Snippet: *snippet,
		Blocks:  blocks,
		Tags:    tagRefs(tags),
		Rank:    rank,
	}
	if snippet.CollectionID != nil {
		collection, err := s.collectionRepo.GetByID(ctx, *snippet.CollectionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if collection != nil {
			ref := collection.Ref()
			detail.Collection = &ref
		}
	}
	return detail, nil
}

// UpdateSnippet applies a partial update. Blocks and tags are replaced wholesale
// when given. Content, tags and the search document change together or not at all.
func (s *snippetService) UpdateSnippet(ctx context.Context, userID, id string, req *vaultSvc.UpdateSnippetRequest) (*models.SnippetDetail, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxSnippetTitleLength)),
		validation.Field(&req.Status, statusRule),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Blocks != nil {
		if len(*req.Blocks) > config.MaxBlocksPerSnippet {
			return nil, fmt.Errorf("%w: at most %d blocks", domain.ErrValidation, config.MaxBlocksPerSnippet)
		}
		if err := validateBlocks(*req.Blocks); err != nil {
			return nil, err
		}
	}

	var (
		snippet *models.Snippet
		rank    models.Rank
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		snippet, rank, err = s.resolver.RequireSnippet(txCtx, userID, id, models.CapWrite)
		if err != nil {
			return err
		}

		if req.Title != nil {
			snippet.Title = *req.Title
		}
		if req.Description != nil {
			snippet.Description = emptyToNil(req.Description)
		}
		if req.CollectionID.Present {
			if err := s.moveSnippet(txCtx, userID, snippet, emptyToNil(req.CollectionID.Value)); err != nil {
				return err
			}
		}
		if req.Status != nil {
			if err := s.applyStatus(txCtx, snippet, *req.Status); err != nil {
				return err
			}
		}

		snippet.UpdatedAt = time.Now()
		if err := s.snippetRepo.Update(txCtx, snippet); err != nil {
			return err
		}

		if req.Blocks != nil {
			if err := s.blockRepo.ReplaceAll(txCtx, snippet.ID, toBlocks(snippet.ID, *req.Blocks)); err != nil {
				return err
			}
		}
		if req.TagIDs != nil {
			// Tags are scoped to the author, whoever is editing
			tagIDs, err := s.ownedTagIDs(txCtx, snippet.AuthorID, *req.TagIDs)
			if err != nil {
				return err
			}
			if err := s.tagRepo.ReplaceSnippetTags(txCtx, snippet.ID, tagIDs); err != nil {
				return err
			}
		}

		return s.indexer.UpsertDocument(txCtx, snippet.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snippet updated", "id", snippet.ID, "user_id", userID, "status", snippet.Status)
	return s.detail(ctx, snippet, rank)
}

// moveSnippet files a snippet into target (nil = unfiled). Only the author may
// unfile, since unfiled snippets are private to their author.
func (s *snippetService) moveSnippet(ctx context.Context, userID string, snippet *models.Snippet, target *string) error {
	if target == nil {
		if snippet.AuthorID != userID {
			return fmt.Errorf("only the author can unfile snippet %s: %w", snippet.ID, domain.ErrForbidden)
		}
		snippet.CollectionID = nil
		return nil
	}
	if err := s.requireTargetCollection(ctx, userID, *target); err != nil {
		return err
	}
	s.logger.Debug("moving snippet", "id", snippet.ID, "from", snippet.CollectionID, "to", *target)
	snippet.CollectionID = target
	return nil
}

// UpdateBlock edits one block's content or language
func (s *snippetService) UpdateBlock(ctx context.Context, userID, snippetID, blockID string, req *vaultSvc.UpdateBlockRequest) (*models.Block, error) {
	var block *models.Block
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.resolver.RequireSnippet(txCtx, userID, snippetID, models.CapWrite); err != nil {
			return err
		}

		var err error
		block, err = s.blockRepo.GetByID(txCtx, snippetID, blockID)
		if err != nil {
			return err
		}
		if req.Content != nil {
			block.Content = req.Content
		}
		if req.Language != nil {
			block.Language = emptyToNil(req.Language)
		}

		if err := s.blockRepo.Update(txCtx, block); err != nil {
			return err
		}
		if err := s.snippetRepo.Touch(txCtx, snippetID, time.Now()); err != nil {
			return err
		}
		return s.indexer.UpsertDocument(txCtx, snippetID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("block updated", "snippet_id", snippetID, "block_id", blockID)
	return block, nil
}

// DeleteSnippet deletes a snippet and its search document
func (s *snippetService) DeleteSnippet(ctx context.Context, userID, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.resolver.RequireSnippet(txCtx, userID, id, models.CapOwner); err != nil {
			return err
		}
		if err := s.snippetRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.indexer.DeleteDocument(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("snippet deleted", "id", id, "user_id", userID)
	return nil
}

// AttachTag links one of the author's tags to a writable snippet
func (s *snippetService) AttachTag(ctx context.Context, userID, snippetID, tagID string) (*models.SnippetDetail, error) {
	return s.changeTag(ctx, userID, snippetID, tagID, s.tagRepo.Attach)
}

// DetachTag unlinks a tag from a writable snippet
func (s *snippetService) DetachTag(ctx context.Context, userID, snippetID, tagID string) (*models.SnippetDetail, error) {
	return s.changeTag(ctx, userID, snippetID, tagID, s.tagRepo.Detach)
}

func (s *snippetService) changeTag(
	ctx context.Context,
	userID, snippetID, tagID string,
	apply func(ctx context.Context, snippetID, tagID string) (bool, error),
) (*models.SnippetDetail, error) {
	var (
		snippet *models.Snippet
		rank    models.Rank
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		snippet, rank, err = s.resolver.RequireSnippet(txCtx, userID, snippetID, models.CapWrite)
		if err != nil {
			return err
		}
		if _, err := s.ownedTagIDs(txCtx, snippet.AuthorID, []string{tagID}); err != nil {
			return err
		}

		changed, err := apply(txCtx, snippetID, tagID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		snippet.UpdatedAt = time.Now()
		if err := s.snippetRepo.Touch(txCtx, snippetID, snippet.UpdatedAt); err != nil {
			return err
		}
		return s.indexer.UpsertDocument(txCtx, snippetID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("snippet tags changed", "snippet_id", snippetID, "tag_id", tagID)
	return s.detail(ctx, snippet, rank)
}

// SetFavorite flags or unflags a snippet. Favorites are the author's own bookkeeping.
func (s *snippetService) SetFavorite(ctx context.Context, userID, id string, value bool) (*models.Snippet, error) {
	return s.setFlags(ctx, userID, id, &value, nil)
}

// SetPinned pins or unpins a snippet
func (s *snippetService) SetPinned(ctx context.Context, userID, id string, value bool) (*models.Snippet, error) {
	return s.setFlags(ctx, userID, id, nil, &value)
}

// setFlags writes only the flag columns. Title, blocks and tags stay as they
// are, so the search document needs no refresh and a concurrent content edit
// is never overwritten.
func (s *snippetService) setFlags(ctx context.Context, userID, id string, favorite, pinned *bool) (*models.Snippet, error) {
	snippet, _, err := s.resolver.RequireSnippet(ctx, userID, id, models.CapRead)
	if err != nil {
		return nil, err
	}
	if snippet.AuthorID != userID {
		return nil, fmt.Errorf("only the author can flag snippet %s: %w", id, domain.ErrForbidden)
	}

	updated, err := s.snippetRepo.SetFlags(ctx, id, favorite, pinned, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("snippet flags changed", "snippet_id", id, "favorite", updated.IsFavorite, "pinned", updated.IsPinned)
	return updated, nil
}

// ListSnippets lists the caller's own snippets, newest first
func (s *snippetService) ListSnippets(ctx context.Context, userID string, req *vaultSvc.ListSnippetsRequest) (*models.SnippetPage, error) {
	filter, err := pageFilter(req)
	if err != nil {
		return nil, err
	}
	filter.AuthorID = userID
	return s.page(ctx, filter)
}

// ListCollectionSnippets lists snippets in a collection. With Subtree set, every
// descendant collection is included under the rank held on the root: a caller
// who can read the root sees the whole subtree's snippets in this listing.
func (s *snippetService) ListCollectionSnippets(ctx context.Context, userID, collectionID string, req *vaultSvc.ListSnippetsRequest) (*models.SnippetPage, error) {
	filter, err := pageFilter(req)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.resolver.RequireCollection(ctx, userID, collectionID, models.CapRead); err != nil {
		return nil, err
	}

	filter.CollectionIDs = []string{collectionID}
	if req.Subtree {
		ids, err := s.subtree.DescendantIDs(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		filter.CollectionIDs = ids
	}
	return s.page(ctx, filter)
}

func pageFilter(req *vaultSvc.ListSnippetsRequest) (*models.SnippetFilter, error) {
	if err := validation.Validate(req.Status, statusRule); err != nil {
		return nil, fmt.Errorf("%w: status: %v", domain.ErrValidation, err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	return &models.SnippetFilter{Status: req.Status, Limit: limit, Offset: offset}, nil
}

func (s *snippetService) page(ctx context.Context, filter *models.SnippetFilter) (*models.SnippetPage, error) {
	summaries, total, err := s.snippetRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.SnippetPage{
		Snippets: summaries,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
		HasMore:  filter.Offset+len(summaries) < total,
	}, nil
}

// GetPublicSnippet returns a published snippet by public id. Drafts and unknown
// ids are indistinguishable to the caller.
func (s *snippetService) GetPublicSnippet(ctx context.Context, publicID string) (*models.PublicSnippet, error) {
	notFound := fmt.Errorf("public snippet %s: %w", publicID, domain.ErrNotFound)
	if !ValidPublicID(publicID) {
		return nil, notFound
	}

	snippet, err := s.snippetRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if snippet.Status != models.StatusPublished || snippet.PublicID == nil {
		return nil, notFound
	}

	blocks, err := s.blockRepo.ListBySnippet(ctx, snippet.ID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagRepo.ListBySnippet(ctx, snippet.ID)
	if err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, snippet.AuthorID)
	if err != nil {
		return nil, err
	}

	return &models.PublicSnippet{
		Title:       snippet.Title,
		Description: snippet.Description,
		PublicID:    *snippet.PublicID,
		AuthorName:  author.Name,
		Blocks:      blocks,
		Tags:        tagRefs(tags),
		UpdatedAt:   snippet.UpdatedAt,
	}, nil
}

func validateBlocks(blocks []vaultSvc.BlockInput) error {
	for i, b := range blocks {
		if !b.Type.Valid() {
			return fmt.Errorf("%w: block %d: unknown type %q", domain.ErrValidation, i, b.Type)
		}
		if !b.Type.Textual() && (b.FilePath == nil || *b.FilePath == "") {
			return fmt.Errorf("%w: block %d: %s blocks need a file path", domain.ErrValidation, i, b.Type)
		}
	}
	return nil
}

// toBlocks numbers blocks by their position in the request
func toBlocks(snippetID string, inputs []vaultSvc.BlockInput) []models.Block {
	blocks := make([]models.Block, len(inputs))
	for i, in := range inputs {
		blocks[i] = models.Block{
			ID:        uuid.NewString(),
			SnippetID: snippetID,
			Order:     i,
			Type:      in.Type,
			Content:   in.Content,
			Language:  emptyToNil(in.Language),
			FilePath:  in.FilePath,
			FileName:  in.FileName,
			FileSize:  in.FileSize,
		}
	}
	return blocks
}

func tagRefs(tags []models.Tag) []models.TagRef {
	refs := make([]models.TagRef, len(tags))
	for i := range tags {
		refs[i] = tags[i].Ref()
	}
	models.SortTagRefs(refs)
	return refs
}
