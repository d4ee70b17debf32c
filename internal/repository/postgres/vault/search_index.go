package vault

import (
	"context"
	"fmt"
	"strings"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	"snipvault/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSearchIndexRepository implements the SearchIndexRepository interface
// on a tsvector GIN index over the search_documents table.
type PostgresSearchIndexRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSearchIndexRepository creates a new search index repository
func NewSearchIndexRepository(config *postgres.RepositoryConfig) vaultRepo.SearchIndexRepository {
	return &PostgresSearchIndexRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert replaces the document for its snippet
func (r *PostgresSearchIndexRepository) Upsert(ctx context.Context, doc *models.SearchDocument) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (snippet_id, user_id, title, content, tags, indexed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (snippet_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    title = EXCLUDED.title,
		    content = EXCLUDED.content,
		    tags = EXCLUDED.tags,
		    indexed_at = EXCLUDED.indexed_at
	`, r.tables.SearchDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, doc.SnippetID, doc.UserID, doc.Title, doc.Content, doc.Tags); err != nil {
		return fmt.Errorf("upsert search document: %w", err)
	}
	return nil
}

// Delete removes a snippet's document
func (r *PostgresSearchIndexRepository) Delete(ctx context.Context, snippetID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE snippet_id = $1`, r.tables.SearchDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, snippetID); err != nil {
		return fmt.Errorf("delete search document: %w", err)
	}
	return nil
}

// Get retrieves a snippet's document
func (r *PostgresSearchIndexRepository) Get(ctx context.Context, snippetID string) (*models.SearchDocument, error) {
	query := fmt.Sprintf(`
		SELECT snippet_id, user_id, title, content, tags
		FROM %s WHERE snippet_id = $1
	`, r.tables.SearchDocuments)

	var doc models.SearchDocument
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, snippetID).Scan(&doc.SnippetID, &doc.UserID, &doc.Title, &doc.Content, &doc.Tags)
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("search document %s: %w", snippetID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get search document: %w", err)
	}
	return &doc, nil
}

// DeleteOrphans removes an owner's documents whose snippet no longer exists
// or is no longer authored by that owner
func (r *PostgresSearchIndexRepository) DeleteOrphans(ctx context.Context, ownerID string) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s d
		WHERE d.user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM %s s WHERE s.id = d.snippet_id AND s.author_id = $1
		  )
	`, r.tables.SearchDocuments, r.tables.Snippets)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete orphan documents: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteUnowned removes documents left behind by deleted users
func (r *PostgresSearchIndexRepository) DeleteUnowned(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s d
		WHERE NOT EXISTS (SELECT 1 FROM %s u WHERE u.id = d.user_id)
	`, r.tables.SearchDocuments, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete unowned documents: %w", err)
	}
	return result.RowsAffected(), nil
}

// Count counts documents of one owner, or of everyone when ownerID is nil
func (r *PostgresSearchIndexRepository) Count(ctx context.Context, ownerID *string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE $1::uuid IS NULL OR user_id = $1::uuid`, r.tables.SearchDocuments)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count search documents: %w", err)
	}
	return count, nil
}

// Search runs a query and returns ranked summaries.
//
// Every term contributes one tsquery over the normalized document text. A document matches when any term
// matches; the matched term count is the primary sort key and the snippet's
// updated_at breaks ties. Without terms the query degrades to a filtered
// listing ordered by updated_at.
func (r *PostgresSearchIndexRepository) Search(ctx context.Context, q *models.IndexQuery) ([]models.SnippetSummary, error) {
	args := []interface{}{q.OwnerID}
	paramIndex := 2

	conditions := []string{"s.author_id = $1"}
	docJoin := ""
	matched := "0"

	if len(q.Terms) > 0 {
		docJoin = fmt.Sprintf(`
		JOIN (
			SELECT snippet_id, to_tsvector('simple', %s) AS vec
			FROM %s
			WHERE user_id = $1
		) d ON d.snippet_id = s.id`, postgres.SearchVectorSource, r.tables.SearchDocuments)

		var anyTerm, counts []string
		for _, term := range q.Terms {
			match := fmt.Sprintf("d.vec @@ to_tsquery('simple', $%d)", paramIndex)
			args = append(args, term.TSQuery())
			paramIndex++
			anyTerm = append(anyTerm, match)
			counts = append(counts, fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", match))
		}
		conditions = append(conditions, "("+strings.Join(anyTerm, " OR ")+")")
		matched = strings.Join(counts, " + ")
	}

	if q.CollectionID != "" {
		conditions = append(conditions, fmt.Sprintf("s.collection_id = $%d", paramIndex))
		args = append(args, q.CollectionID)
		paramIndex++
	}
	if q.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", paramIndex))
		args = append(args, q.Status)
		paramIndex++
	}
	if q.TagName != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM %s st JOIN %s tg ON tg.id = st.tag_id
			WHERE st.snippet_id = s.id AND tg.user_id = $1 AND tg.name = $%d
		)`, r.tables.SnippetTags, r.tables.Tags, paramIndex))
		args = append(args, q.TagName)
		paramIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s, (%s) AS matched_terms
		FROM %s s
		LEFT JOIN %s c ON c.id = s.collection_id
		%s
		WHERE %s
		ORDER BY matched_terms DESC, s.updated_at DESC, s.id
		LIMIT $%d
	`, summaryColumns(r.tables), matched, r.tables.Snippets, r.tables.Collections, docJoin,
		strings.Join(conditions, " AND "), paramIndex)
	args = append(args, q.Limit)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		if postgres.IsPgInvalidInputError(err) {
			// Malformed collection id in the filter cannot match anything
			return []models.SnippetSummary{}, nil
		}
		return nil, fmt.Errorf("search snippets: %w", err)
	}
	defer rows.Close()

	results := []models.SnippetSummary{}
	for rows.Next() {
		var matchedTerms int
		summary, err := scanSummary(rows, &matchedTerms)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		summary.MatchedTerms = matchedTerms
		results = append(results, summary)
	}
	if err := rows.Err(); err != nil {
		if postgres.IsPgInvalidInputError(err) {
			return []models.SnippetSummary{}, nil
		}
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}
