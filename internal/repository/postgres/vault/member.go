package vault

import (
	"context"
	"fmt"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	"snipvault/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMemberRepository implements the MemberRepository interface
type PostgresMemberRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewMemberRepository creates a new membership repository
func NewMemberRepository(config *postgres.RepositoryConfig) vaultRepo.MemberRepository {
	return &PostgresMemberRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get retrieves the membership of a user on a collection
func (r *PostgresMemberRepository) Get(ctx context.Context, collectionID, userID string) (*models.CollectionMember, error) {
	query := fmt.Sprintf(`
		SELECT m.collection_id, m.user_id, m.permission, m.invited_at, u.name, u.email
		FROM %s m
		JOIN %s u ON u.id = m.user_id
		WHERE m.collection_id = $1 AND m.user_id = $2
	`, r.tables.CollectionMembers, r.tables.Users)

	var member models.CollectionMember
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, collectionID, userID).Scan(
		&member.CollectionID,
		&member.UserID,
		&member.Permission,
		&member.InvitedAt,
		&member.UserName,
		&member.UserEmail,
	)
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("membership %s/%s: %w", collectionID, userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &member, nil
}

// List lists the members of a collection with user name and email
func (r *PostgresMemberRepository) List(ctx context.Context, collectionID string) ([]models.CollectionMember, error) {
	query := fmt.Sprintf(`
		SELECT m.collection_id, m.user_id, m.permission, m.invited_at, u.name, u.email
		FROM %s m
		JOIN %s u ON u.id = m.user_id
		WHERE m.collection_id = $1
		ORDER BY m.invited_at, u.email
	`, r.tables.CollectionMembers, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.CollectionMember{}
	for rows.Next() {
		var member models.CollectionMember
		err := rows.Scan(
			&member.CollectionID,
			&member.UserID,
			&member.Permission,
			&member.InvitedAt,
			&member.UserName,
			&member.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// Add inserts a membership
func (r *PostgresMemberRepository) Add(ctx context.Context, member *models.CollectionMember) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (collection_id, user_id, permission, invited_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.CollectionMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, member.CollectionID, member.UserID, member.Permission, member.InvitedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "user is already a member of this collection",
				ResourceType: "member",
				ResourceID:   member.UserID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("collection or user: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// UpdatePermission changes the permission of an existing membership
func (r *PostgresMemberRepository) UpdatePermission(ctx context.Context, collectionID, userID, permission string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET permission = $1
		WHERE collection_id = $2 AND user_id = $3
	`, r.tables.CollectionMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, permission, collectionID, userID)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership %s/%s: %w", collectionID, userID, domain.ErrNotFound)
	}
	return nil
}

// Remove deletes a membership
func (r *PostgresMemberRepository) Remove(ctx context.Context, collectionID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE collection_id = $1 AND user_id = $2`, r.tables.CollectionMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, collectionID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership %s/%s: %w", collectionID, userID, domain.ErrNotFound)
	}
	return nil
}

// Count counts the memberships of a collection
func (r *PostgresMemberRepository) Count(ctx context.Context, collectionID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE collection_id = $1`, r.tables.CollectionMembers)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, collectionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}
