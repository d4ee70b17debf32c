package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// UserRepository defines data access operations for users
type UserRepository interface {
	// Create inserts a new user. Duplicate emails return a ConflictError.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email (case-insensitive)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByAPIKey retrieves the user holding an API key
	GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error)

	// Update persists name, password hash, API key and role
	Update(ctx context.Context, user *models.User) error

	// ListIDs returns every user ID
	ListIDs(ctx context.Context) ([]string, error)
}
