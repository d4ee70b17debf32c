package vault

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"snipvault/internal/config"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/domain/repositories"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type tagService struct {
	tagRepo   vaultRepo.TagRepository
	indexer   vaultSvc.IndexService
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewTagService creates a new tag service
func NewTagService(
	tagRepo vaultRepo.TagRepository,
	indexer vaultSvc.IndexService,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) vaultSvc.TagService {
	return &tagService{
		tagRepo:   tagRepo,
		indexer:   indexer,
		txManager: txManager,
		logger:    logger,
	}
}

func tagNameRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.Length(1, config.MaxTagNameLength)}
}

// ListTags lists the caller's tags
func (s *tagService) ListTags(ctx context.Context, userID string) ([]models.Tag, error) {
	return s.tagRepo.ListByUser(ctx, userID)
}

// CreateTag creates a tag; a case-insensitive duplicate is a conflict naming the existing tag
func (s *tagService) CreateTag(ctx context.Context, userID string, req *vaultSvc.CreateTagRequest) (*models.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, tagNameRules()...),
		validation.Field(&req.Color, validation.Match(colorPattern)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existing, err := s.tagRepo.FindByName(ctx, userID, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("tag '%s' already exists", existing.Name),
			ResourceType: "tag",
			ResourceID:   existing.ID,
		}
	}

	tag := &models.Tag{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Color:  emptyToNil(req.Color),
		UserID: userID,
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created", "id", tag.ID, "name", tag.Name, "user_id", userID)
	return tag, nil
}

// GetTag retrieves one of the caller's tags. Other users' tags do not exist for the caller.
func (s *tagService) GetTag(ctx context.Context, userID, id string) (*models.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.UserID != userID {
		return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	return tag, nil
}

// UpdateTag renames or recolors a tag. A rename changes the text of every
// snippet carrying the tag, so those documents are regenerated in the same transaction.
func (s *tagService) UpdateTag(ctx context.Context, userID, id string, req *vaultSvc.UpdateTagRequest) (*models.Tag, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxTagNameLength)),
		validation.Field(&req.Color, validation.Match(colorPattern)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var tag *models.Tag
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		tag, err = s.GetTag(txCtx, userID, id)
		if err != nil {
			return err
		}

		renamed := req.Name != nil && *req.Name != tag.Name
		if renamed {
			existing, err := s.tagRepo.FindByName(txCtx, userID, *req.Name)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != tag.ID {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("tag '%s' already exists", existing.Name),
					ResourceType: "tag",
					ResourceID:   existing.ID,
				}
			}
			tag.Name = *req.Name
		}
		if req.Color != nil {
			tag.Color = emptyToNil(req.Color)
		}

		if err := s.tagRepo.Update(txCtx, tag); err != nil {
			return err
		}
		if !renamed {
			return nil
		}
		return s.reindexTagged(txCtx, tag.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag updated", "id", tag.ID, "name", tag.Name)
	return tag, nil
}

// DeleteTag deletes a tag and regenerates the documents of the snippets that carried it
func (s *tagService) DeleteTag(ctx context.Context, userID, id string) error {
	var affected []string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := s.GetTag(txCtx, userID, id); err != nil {
			return err
		}

		var err error
		affected, err = s.tagRepo.ListSnippetIDs(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.tagRepo.Delete(txCtx, id); err != nil {
			return err
		}
		for _, snippetID := range affected {
			if err := s.indexer.UpsertDocument(txCtx, snippetID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("tag deleted", "id", id, "user_id", userID, "reindexed", len(affected))
	return nil
}

func (s *tagService) reindexTagged(ctx context.Context, tagID string) error {
	snippetIDs, err := s.tagRepo.ListSnippetIDs(ctx, tagID)
	if err != nil {
		return err
	}
	for _, snippetID := range snippetIDs {
		if err := s.indexer.UpsertDocument(ctx, snippetID); err != nil {
			return err
		}
	}
	s.logger.Debug("tagged snippets reindexed", "tag_id", tagID, "count", len(snippetIDs))
	return nil
}
