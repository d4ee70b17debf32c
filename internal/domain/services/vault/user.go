package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// UserService manages accounts and credentials
type UserService interface {
	// CreateUser registers a user with a hashed password and a fresh API key
	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, string, error)

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Authenticate checks an email and password
	Authenticate(ctx context.Context, email, password string) (*models.User, error)

	// AuthenticateAPIKey resolves an API key to its user
	AuthenticateAPIKey(ctx context.Context, apiKey string) (*models.User, error)

	// RotateAPIKey issues a new API key and returns it
	RotateAPIKey(ctx context.Context, userID string) (string, error)

	// ResetPassword replaces a user's password
	ResetPassword(ctx context.Context, userID, password string) error
}

// CreateUserRequest represents a user registration
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Admin    bool   `json:"admin,omitempty"`
}
