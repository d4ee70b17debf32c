package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/domain/repositories"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type memberService struct {
	memberRepo     vaultRepo.MemberRepository
	collectionRepo vaultRepo.CollectionRepository
	userRepo       vaultRepo.UserRepository
	resolver       vaultSvc.PermissionResolver
	txManager      repositories.TransactionManager
	logger         *slog.Logger
}

// NewMemberService creates a new membership service
func NewMemberService(
	memberRepo vaultRepo.MemberRepository,
	collectionRepo vaultRepo.CollectionRepository,
	userRepo vaultRepo.UserRepository,
	resolver vaultSvc.PermissionResolver,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) vaultSvc.MemberService {
	return &memberService{
		memberRepo:     memberRepo,
		collectionRepo: collectionRepo,
		userRepo:       userRepo,
		resolver:       resolver,
		txManager:      txManager,
		logger:         logger,
	}
}

var permissionRule = validation.In(models.MemberRead, models.MemberWrite)

// ListMembers lists members with name and email
func (s *memberService) ListMembers(ctx context.Context, userID, collectionID string) ([]models.CollectionMember, error) {
	if _, _, err := s.resolver.RequireCollection(ctx, userID, collectionID, models.CapOwner); err != nil {
		return nil, err
	}
	return s.memberRepo.List(ctx, collectionID)
}

// AddMember grants a user read or write on exactly this collection
func (s *memberService) AddMember(ctx context.Context, userID, collectionID string, req *vaultSvc.AddMemberRequest) (*models.CollectionMember, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, is.EmailFormat),
		validation.Field(&req.Permission, validation.Required, permissionRule),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var member *models.CollectionMember
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		collection, _, err := s.resolver.RequireCollection(txCtx, userID, collectionID, models.CapOwner)
		if err != nil {
			return err
		}

		invitee, err := s.userRepo.GetByEmail(txCtx, req.Email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: no user with email %s", domain.ErrValidation, req.Email)
			}
			return err
		}
		if invitee.ID == collection.OwnerID {
			return fmt.Errorf("%w: the owner cannot be added as a member", domain.ErrValidation)
		}

		member = &models.CollectionMember{
			CollectionID: collectionID,
			UserID:       invitee.ID,
			Permission:   req.Permission,
			InvitedAt:    time.Now(),
			UserName:     invitee.Name,
			UserEmail:    invitee.Email,
		}
		if err := s.memberRepo.Add(txCtx, member); err != nil {
			return err
		}
		return s.syncShared(txCtx, collectionID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member added",
		"collection_id", collectionID,
		"user_id", member.UserID,
		"permission", member.Permission,
	)
	return member, nil
}

// UpdateMember changes a member's permission
func (s *memberService) UpdateMember(ctx context.Context, userID, collectionID, memberID string, req *vaultSvc.UpdateMemberRequest) (*models.CollectionMember, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Permission, validation.Required, permissionRule),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var member *models.CollectionMember
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.resolver.RequireCollection(txCtx, userID, collectionID, models.CapOwner); err != nil {
			return err
		}
		if err := s.memberRepo.UpdatePermission(txCtx, collectionID, memberID, req.Permission); err != nil {
			return err
		}
		var err error
		member, err = s.memberRepo.Get(txCtx, collectionID, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member updated", "collection_id", collectionID, "user_id", memberID, "permission", req.Permission)
	return member, nil
}

// RemoveMember revokes a membership
func (s *memberService) RemoveMember(ctx context.Context, userID, collectionID, memberID string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.resolver.RequireCollection(txCtx, userID, collectionID, models.CapOwner); err != nil {
			return err
		}
		if err := s.memberRepo.Remove(txCtx, collectionID, memberID); err != nil {
			return err
		}
		return s.syncShared(txCtx, collectionID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("member removed", "collection_id", collectionID, "user_id", memberID)
	return nil
}

// syncShared recomputes the is_shared cache from the membership count. It is the
// only writer of that flag.
func (s *memberService) syncShared(ctx context.Context, collectionID string) error {
	count, err := s.memberRepo.Count(ctx, collectionID)
	if err != nil {
		return err
	}
	return s.collectionRepo.SetShared(ctx, collectionID, count > 0)
}
