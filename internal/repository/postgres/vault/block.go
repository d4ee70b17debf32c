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

// PostgresBlockRepository implements the BlockRepository interface
type PostgresBlockRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(config *postgres.RepositoryConfig) vaultRepo.BlockRepository {
	return &PostgresBlockRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const blockColumns = `id, snippet_id, "order", type, content, language, file_path, file_name, file_size`

func blockScanTargets(b *models.Block) []interface{} {
	return []interface{}{
		&b.ID,
		&b.SnippetID,
		&b.Order,
		&b.Type,
		&b.Content,
		&b.Language,
		&b.FilePath,
		&b.FileName,
		&b.FileSize,
	}
}

// ListBySnippet lists a snippet's blocks in order
func (r *PostgresBlockRepository) ListBySnippet(ctx context.Context, snippetID string) ([]models.Block, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE snippet_id = $1
		ORDER BY "order"
	`, blockColumns, r.tables.SnippetBlocks)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, snippetID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	blocks := []models.Block{}
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(blockScanTargets(&b)...); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// ReplaceAll deletes every block of the snippet and inserts the given ones
func (r *PostgresBlockRepository) ReplaceAll(ctx context.Context, snippetID string, blocks []models.Block) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE snippet_id = $1`, r.tables.SnippetBlocks)
	if _, err := executor.Exec(ctx, deleteQuery, snippetID); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}

	if len(blocks) == 0 {
		return nil
	}

	insertQuery := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.tables.SnippetBlocks, blockColumns)

	batch := &pgx.Batch{}
	for _, b := range blocks {
		batch.Queue(insertQuery, b.ID, snippetID, b.Order, b.Type, b.Content, b.Language, b.FilePath, b.FileName, b.FileSize)
	}

	results := executor.SendBatch(ctx, batch)
	defer results.Close()
	for range blocks {
		if _, err := results.Exec(); err != nil {
			if postgres.IsPgDuplicateError(err) {
				return fmt.Errorf("duplicate block order: %w", domain.ErrValidation)
			}
			return fmt.Errorf("insert block: %w", err)
		}
	}
	return nil
}

// GetByID retrieves one block of a snippet
func (r *PostgresBlockRepository) GetByID(ctx context.Context, snippetID, blockID string) (*models.Block, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND snippet_id = $2`, blockColumns, r.tables.SnippetBlocks)

	var b models.Block
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, blockID, snippetID).Scan(blockScanTargets(&b)...)
	if err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

// Update updates content and language of a block
func (r *PostgresBlockRepository) Update(ctx context.Context, block *models.Block) error {
	query := fmt.Sprintf(`
		UPDATE %s SET content = $1, language = $2
		WHERE id = $3 AND snippet_id = $4
	`, r.tables.SnippetBlocks)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, block.Content, block.Language, block.ID, block.SnippetID)
	if err != nil {
		return fmt.Errorf("update block: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("block %s: %w", block.ID, domain.ErrNotFound)
	}
	return nil
}
