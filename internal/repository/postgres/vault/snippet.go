package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	"snipvault/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnippetRepository implements the SnippetRepository interface
type PostgresSnippetRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSnippetRepository creates a new snippet repository
func NewSnippetRepository(config *postgres.RepositoryConfig) vaultRepo.SnippetRepository {
	return &PostgresSnippetRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const snippetColumns = `id, title, description, collection_id, author_id, status, is_favorite, is_pinned, public_id, created_at, updated_at`

func scanSnippet(row pgx.Row) (*models.Snippet, error) {
	var s models.Snippet
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.CollectionID,
		&s.AuthorID,
		&s.Status,
		&s.IsFavorite,
		&s.IsPinned,
		&s.PublicID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create creates a new snippet
func (r *PostgresSnippetRepository) Create(ctx context.Context, snippet *models.Snippet) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Snippets, snippetColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		snippet.ID,
		snippet.Title,
		snippet.Description,
		snippet.CollectionID,
		snippet.AuthorID,
		snippet.Status,
		snippet.IsFavorite,
		snippet.IsPinned,
		snippet.PublicID,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return r.writeError("create", snippet, err)
	}
	return nil
}

func (r *PostgresSnippetRepository) writeError(op string, snippet *models.Snippet, err error) error {
	if postgres.IsPgDuplicateError(err) {
		return &domain.ConflictError{
			Message:      "public id already in use",
			ResourceType: "snippet",
			ResourceID:   snippet.ID,
		}
	}
	if postgres.IsPgForeignKeyError(err) {
		return fmt.Errorf("collection: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("%s snippet: %w", op, err)
}

// GetByID retrieves a snippet by ID
func (r *PostgresSnippetRepository) GetByID(ctx context.Context, id string) (*models.Snippet, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, snippetColumns, r.tables.Snippets)
	return r.getOne(ctx, "snippet "+id, query, id)
}

// GetForUpdate retrieves a snippet and locks its row
func (r *PostgresSnippetRepository) GetForUpdate(ctx context.Context, id string) (*models.Snippet, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, snippetColumns, r.tables.Snippets)
	return r.getOne(ctx, "snippet "+id, query, id)
}

// GetByPublicID retrieves a snippet by its public identifier
func (r *PostgresSnippetRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Snippet, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE public_id = $1`, snippetColumns, r.tables.Snippets)
	return r.getOne(ctx, "public snippet "+publicID, query, publicID)
}

func (r *PostgresSnippetRepository) getOne(ctx context.Context, label, query string, args ...interface{}) (*models.Snippet, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	snippet, err := scanSnippet(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("%s: %w", label, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get snippet: %w", err)
	}
	return snippet, nil
}

// Update persists every mutable column
func (r *PostgresSnippetRepository) Update(ctx context.Context, snippet *models.Snippet) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, description = $2, collection_id = $3, status = $4,
		    is_favorite = $5, is_pinned = $6, public_id = $7, updated_at = $8
		WHERE id = $9
	`, r.tables.Snippets)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		snippet.Title,
		snippet.Description,
		snippet.CollectionID,
		snippet.Status,
		snippet.IsFavorite,
		snippet.IsPinned,
		snippet.PublicID,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return r.writeError("update", snippet, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("snippet %s: %w", snippet.ID, domain.ErrNotFound)
	}
	return nil
}

// SetFlags changes the favorite and pinned flags without touching content columns
func (r *PostgresSnippetRepository) SetFlags(ctx context.Context, id string, favorite, pinned *bool, at time.Time) (*models.Snippet, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_favorite = COALESCE($1::boolean, is_favorite),
		    is_pinned = COALESCE($2::boolean, is_pinned),
		    updated_at = $3
		WHERE id = $4
		RETURNING %s
	`, r.tables.Snippets, snippetColumns)
	return r.getOne(ctx, "snippet "+id, query, favorite, pinned, at, id)
}

// Touch bumps updated_at
func (r *PostgresSnippetRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = $1 WHERE id = $2`, r.tables.Snippets)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("touch snippet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("snippet %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a snippet
func (r *PostgresSnippetRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Snippets)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("snippet %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListIDsByAuthor lists the IDs of every snippet written by a user
func (r *PostgresSnippetRepository) ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE author_id = $1 ORDER BY created_at`, r.tables.Snippets)
	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query, authorID)
}

// List returns summaries matching the filter, newest first, and the total count
func (r *PostgresSnippetRepository) List(ctx context.Context, filter *models.SnippetFilter) ([]models.SnippetSummary, int, error) {
	var conditions []string
	var args []interface{}
	paramIndex := 1

	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.author_id = $%d", paramIndex))
		args = append(args, filter.AuthorID)
		paramIndex++
	}
	if filter.CollectionIDs != nil {
		conditions = append(conditions, fmt.Sprintf("s.collection_id = ANY($%d::uuid[])", paramIndex))
		args = append(args, filter.CollectionIDs)
		paramIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", paramIndex))
		args = append(args, filter.Status)
		paramIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s s %s`, r.tables.Snippets, where)
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count snippets: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s s
		LEFT JOIN %s c ON c.id = s.collection_id
		%s
		ORDER BY s.updated_at DESC, s.id
		LIMIT $%d OFFSET $%d
	`, summaryColumns(r.tables), r.tables.Snippets, r.tables.Collections, where, paramIndex, paramIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	summaries := []models.SnippetSummary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan snippet summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate snippets: %w", err)
	}

	return summaries, total, nil
}
