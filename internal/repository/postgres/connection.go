package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"snipvault/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Users             string
	Collections       string
	CollectionMembers string
	Snippets          string
	SnippetBlocks     string
	Tags              string
	SnippetTags       string
	SearchDocuments   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Users:             fmt.Sprintf("%susers", prefix),
		Collections:       fmt.Sprintf("%scollections", prefix),
		CollectionMembers: fmt.Sprintf("%scollection_members", prefix),
		Snippets:          fmt.Sprintf("%ssnippets", prefix),
		SnippetBlocks:     fmt.Sprintf("%ssnippet_blocks", prefix),
		Tags:              fmt.Sprintf("%stags", prefix),
		SnippetTags:       fmt.Sprintf("%ssnippet_tags", prefix),
		SearchDocuments:   fmt.Sprintf("%ssearch_documents", prefix),
	}
}

// All returns every table in creation order. Drop in reverse.
func (t *TableNames) All() []string {
	return []string{
		t.Users,
		t.Collections,
		t.CollectionMembers,
		t.Snippets,
		t.SnippetBlocks,
		t.Tags,
		t.SnippetTags,
		t.SearchDocuments,
	}
}

// CreateConnectionPool creates a new pgx connection pool with automatic PgBouncer compatibility.
//
// PgBouncer in transaction pooling mode (port 6543) does not support prepared
// statements, so that port switches to QueryExecModeCacheDescribe unless the
// connection string sets default_query_exec_mode explicitly. Direct connections
// keep the default statement cache.
//
// Table names are interpolated with fmt.Sprintf before the SQL reaches the
// server, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
