package vault

import (
	"context"
	"fmt"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	"snipvault/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *postgres.RepositoryConfig) vaultRepo.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const userColumns = `id, email, name, password_hash, api_key, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.APIKey,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8)
	`, r.tables.Users, userColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.APIKey,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("user '%s' already exists", user.Email),
				ResourceType: "user",
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, r.tables.Users)
	return r.getOne(ctx, query, id, "user "+id)
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = lower($1)`, userColumns, r.tables.Users)
	return r.getOne(ctx, query, email, "user "+email)
}

// GetByAPIKey retrieves the user holding an API key
func (r *PostgresUserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE api_key = $1`, userColumns, r.tables.Users)
	return r.getOne(ctx, query, apiKey, "api key")
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query, arg, label string) (*models.User, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	user, err := scanUser(executor.QueryRow(ctx, query, arg))
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("%s: %w", label, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update persists name, password hash, API key and role
func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, password_hash = $2, api_key = $3, role = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		user.Name,
		user.PasswordHash,
		user.APIKey,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("api key collision: %w", domain.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	return nil
}

// ListIDs returns every user ID
func (r *PostgresUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s ORDER BY created_at`, r.tables.Users)
	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query)
}
