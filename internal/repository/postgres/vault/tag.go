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

// PostgresTagRepository implements the TagRepository interface
type PostgresTagRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewTagRepository creates a new tag repository
func NewTagRepository(config *postgres.RepositoryConfig) vaultRepo.TagRepository {
	return &PostgresTagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresTagRepository) collectTags(rows pgx.Rows) ([]models.Tag, error) {
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.UserID); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// Create creates a new tag
func (r *PostgresTagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, color, user_id)
		VALUES ($1, $2, $3, $4)
	`, r.tables.Tags)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, tag.ID, tag.Name, tag.Color, tag.UserID)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicate(ctx, tag)
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// duplicate builds the conflict error for a name clash, pointing at the existing tag.
// The lookup runs on the pool since a failed statement aborts any open transaction.
func (r *PostgresTagRepository) duplicate(ctx context.Context, tag *models.Tag) error {
	conflict := &domain.ConflictError{
		Message:      fmt.Sprintf("tag '%s' already exists", tag.Name),
		ResourceType: "tag",
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 AND lower(name) = lower($2)`, r.tables.Tags)
	var existingID string
	if err := r.pool.QueryRow(ctx, query, tag.UserID, tag.Name).Scan(&existingID); err == nil {
		conflict.ResourceID = existingID
	}
	return conflict
}

// GetByID retrieves a tag by ID
func (r *PostgresTagRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	query := fmt.Sprintf(`SELECT id, name, color, user_id FROM %s WHERE id = $1`, r.tables.Tags)

	var tag models.Tag
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.UserID)
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// FindByName finds a user's tag by name, ignoring case
func (r *PostgresTagRepository) FindByName(ctx context.Context, userID, name string) (*models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT id, name, color, user_id FROM %s
		WHERE user_id = $1 AND lower(name) = lower($2)
	`, r.tables.Tags)

	var tag models.Tag
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, name).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.UserID)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return &tag, nil
}

// ListByUser lists a user's tags by name
func (r *PostgresTagRepository) ListByUser(ctx context.Context, userID string) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT id, name, color, user_id FROM %s
		WHERE user_id = $1
		ORDER BY lower(name), id
	`, r.tables.Tags)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return r.collectTags(rows)
}

// Update updates name and color
func (r *PostgresTagRepository) Update(ctx context.Context, tag *models.Tag) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $1, color = $2 WHERE id = $3`, r.tables.Tags)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tag.Name, tag.Color, tag.ID)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicate(ctx, tag)
		}
		return fmt.Errorf("update tag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", tag.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a tag
func (r *PostgresTagRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Tags)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListBySnippet lists the tags attached to a snippet
func (r *PostgresTagRepository) ListBySnippet(ctx context.Context, snippetID string) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.name, t.color, t.user_id
		FROM %s t
		JOIN %s st ON st.tag_id = t.id
		WHERE st.snippet_id = $1
		ORDER BY t.name, t.id
	`, r.tables.Tags, r.tables.SnippetTags)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, snippetID)
	if err != nil {
		return nil, fmt.Errorf("list snippet tags: %w", err)
	}
	return r.collectTags(rows)
}

// ListSnippetIDs lists the snippets carrying a tag
func (r *PostgresTagRepository) ListSnippetIDs(ctx context.Context, tagID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT snippet_id FROM %s WHERE tag_id = $1 ORDER BY snippet_id`, r.tables.SnippetTags)
	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query, tagID)
}

// ReplaceSnippetTags replaces a snippet's tag set
func (r *PostgresTagRepository) ReplaceSnippetTags(ctx context.Context, snippetID string, tagIDs []string) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE snippet_id = $1`, r.tables.SnippetTags)
	if _, err := executor.Exec(ctx, deleteQuery, snippetID); err != nil {
		return fmt.Errorf("clear snippet tags: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (snippet_id, tag_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, r.tables.SnippetTags)
	if _, err := executor.Exec(ctx, insertQuery, snippetID, tagIDs); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("tag: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("set snippet tags: %w", err)
	}
	return nil
}

// Attach links a tag to a snippet
func (r *PostgresTagRepository) Attach(ctx context.Context, snippetID, tagID string) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (snippet_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.SnippetTags)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, snippetID, tagID)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return false, fmt.Errorf("snippet or tag: %w", domain.ErrNotFound)
		}
		return false, fmt.Errorf("attach tag: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Detach unlinks a tag from a snippet
func (r *PostgresTagRepository) Detach(ctx context.Context, snippetID, tagID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE snippet_id = $1 AND tag_id = $2`, r.tables.SnippetTags)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, snippetID, tagID)
	if err != nil {
		return false, fmt.Errorf("detach tag: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
