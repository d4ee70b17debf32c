package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snipvault/internal/auth"
	"snipvault/internal/config"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// apiKeyAttempts bounds retries when a freshly generated key collides
const apiKeyAttempts = 3

// APIKeyGenerator produces new API keys
type APIKeyGenerator func() (string, error)

type userService struct {
	userRepo  vaultRepo.UserRepository
	hasher    auth.PasswordHasher
	newAPIKey APIKeyGenerator
	logger    *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo vaultRepo.UserRepository,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
) vaultSvc.UserService {
	return &userService{
		userRepo:  userRepo,
		hasher:    hasher,
		newAPIKey: auth.NewAPIKey,
		logger:    logger,
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.Length(config.MinPasswordLength, 0)}
}

// CreateUser registers a user and returns it together with its API key.
// The key is only ever shown here and on rotation.
func (s *userService) CreateUser(ctx context.Context, req *vaultSvc.CreateUserRequest) (*models.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, is.EmailFormat),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxUserNameLength)),
		validation.Field(&req.Password, passwordRules()...),
	); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	apiKey, err := s.newAPIKey()
	if err != nil {
		return nil, "", err
	}

	role := models.RoleUser
	if req.Admin {
		role = models.RoleAdmin
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		APIKey:       &apiKey,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	s.logger.Info("user created", "id", user.ID, "email", user.Email, "role", user.Role)
	return user, apiKey, nil
}

// GetUser retrieves a user by ID
func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Authenticate checks an email and password. Unknown emails and wrong
// passwords produce the same error.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// AuthenticateAPIKey resolves an API key to its user
func (s *userService) AuthenticateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if len(apiKey) < config.MinAPIKeyLength {
		return nil, fmt.Errorf("invalid api key: %w", domain.ErrUnauthorized)
	}
	user, err := s.userRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid api key: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// RotateAPIKey replaces a user's API key; the old key stops working immediately
func (s *userService) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= apiKeyAttempts; attempt++ {
		apiKey, err := s.newAPIKey()
		if err != nil {
			return "", err
		}
		user.APIKey = &apiKey
		user.UpdatedAt = time.Now()

		err = s.userRepo.Update(ctx, user)
		if err == nil {
			s.logger.Info("api key rotated", "user_id", userID)
			return apiKey, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		s.logger.Warn("api key collision, retrying", "user_id", userID, "attempt", attempt)
	}
	return "", fmt.Errorf("rotate api key for %s: %w", userID, domain.ErrConflict)
}

// ResetPassword replaces a user's password
func (s *userService) ResetPassword(ctx context.Context, userID, password string) error {
	if err := validation.Validate(password, passwordRules()...); err != nil {
		return fmt.Errorf("%w: password: %v", domain.ErrValidation, err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password reset", "user_id", userID)
	return nil
}
