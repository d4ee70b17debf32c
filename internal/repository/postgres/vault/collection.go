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

// PostgresCollectionRepository implements the CollectionRepository interface
type PostgresCollectionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(config *postgres.RepositoryConfig) vaultRepo.CollectionRepository {
	return &PostgresCollectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const collectionColumns = `c.id, c.name, c.description, c.icon, c.parent_id, c.owner_id, c.is_shared, c.created_at, c.updated_at`

func collectionScanTargets(c *models.Collection) []interface{} {
	return []interface{}{
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Icon,
		&c.ParentID,
		&c.OwnerID,
		&c.IsShared,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

// Create creates a new collection
func (r *PostgresCollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, icon, parent_id, owner_id, is_shared, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		collection.ID,
		collection.Name,
		collection.Description,
		collection.Icon,
		collection.ParentID,
		collection.OwnerID,
		collection.IsShared,
		collection.CreatedAt,
		collection.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent collection: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// GetByID retrieves a collection by ID
func (r *PostgresCollectionRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s c WHERE c.id = $1`, collectionColumns, r.tables.Collections)

	var collection models.Collection
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(collectionScanTargets(&collection)...)
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &collection, nil
}

// Update updates name, description, icon and parent
func (r *PostgresCollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, icon = $3, parent_id = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		collection.Name,
		collection.Description,
		collection.Icon,
		collection.ParentID,
		collection.UpdatedAt,
		collection.ID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent collection: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update collection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", collection.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a collection
func (r *PostgresCollectionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.NotEmptyError{CollectionID: id}
		}
		return fmt.Errorf("delete collection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListOwned lists every collection owned by a user
func (r *PostgresCollectionRepository) ListOwned(ctx context.Context, ownerID string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s c
		WHERE c.owner_id = $1
		ORDER BY c.name
	`, collectionColumns, r.tables.Collections)
	return r.list(ctx, query, ownerID)
}

// ListChildren lists immediate child collections
func (r *PostgresCollectionRepository) ListChildren(ctx context.Context, parentID string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s c
		WHERE c.parent_id = $1
		ORDER BY c.name
	`, collectionColumns, r.tables.Collections)
	return r.list(ctx, query, parentID)
}

func (r *PostgresCollectionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Collection, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	collections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Collection, error) {
		var c models.Collection
		err := row.Scan(collectionScanTargets(&c)...)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if collections == nil {
		collections = []models.Collection{}
	}
	return collections, nil
}

// ListShared lists collections a user reaches through membership
func (r *PostgresCollectionRepository) ListShared(ctx context.Context, userID string) ([]models.SharedCollection, error) {
	query := fmt.Sprintf(`
		SELECT %s, m.permission
		FROM %s c
		JOIN %s m ON m.collection_id = c.id
		WHERE m.user_id = $1 AND c.owner_id <> $1
		ORDER BY c.name
	`, collectionColumns, r.tables.Collections, r.tables.CollectionMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared collections: %w", err)
	}
	defer rows.Close()

	shared := []models.SharedCollection{}
	for rows.Next() {
		var sc models.SharedCollection
		targets := append(collectionScanTargets(&sc.Collection), &sc.Permission)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan shared collection: %w", err)
		}
		shared = append(shared, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared collections: %w", err)
	}
	return shared, nil
}

// ListChildLinks returns the child edges of every given parent in one query
func (r *PostgresCollectionRepository) ListChildLinks(ctx context.Context, parentIDs []string) ([]models.ChildLink, error) {
	if len(parentIDs) == 0 {
		return []models.ChildLink{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, parent_id FROM %s
		WHERE parent_id = ANY($1::uuid[])
	`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("list child links: %w", err)
	}
	defer rows.Close()

	links := []models.ChildLink{}
	for rows.Next() {
		var link models.ChildLink
		if err := rows.Scan(&link.ID, &link.ParentID); err != nil {
			return nil, fmt.Errorf("scan child link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child links: %w", err)
	}
	return links, nil
}

// CountContents counts snippets and child collections directly inside a collection
func (r *PostgresCollectionRepository) CountContents(ctx context.Context, id string) (int, int, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE collection_id = $1),
			(SELECT COUNT(*) FROM %s WHERE parent_id = $1)
	`, r.tables.Snippets, r.tables.Collections)

	var snippets, children int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&snippets, &children); err != nil {
		return 0, 0, fmt.Errorf("count collection contents: %w", err)
	}
	return snippets, children, nil
}

// SetShared writes the is_shared cache
func (r *PostgresCollectionRepository) SetShared(ctx context.Context, id string, shared bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_shared = $1 WHERE id = $2`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, shared, id); err != nil {
		return fmt.Errorf("set collection shared: %w", err)
	}
	return nil
}
