package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchVectorSource is the text expression the full-text index is built on.
// Every run of non-alphanumeric characters becomes a space before parsing, so
// "fmt.Println" and "/usr/bin/env" yield the same word tokens as
// models.Tokenize. Queries must use the identical expression for the GIN
// index to apply.
const SearchVectorSource = `regexp_replace(lower(coalesce(title, '') || ' ' || coalesce(content, '') || ' ' || coalesce(tags, '')), '[^[:alnum:]]+', ' ', 'g')`

// RunSchema creates tables and indexes if they don't exist
func RunSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			api_key TEXT UNIQUE,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Collections + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			icon TEXT,
			parent_id UUID REFERENCES ` + tables.Collections + `(id) ON DELETE RESTRICT,
			owner_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			is_shared BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.CollectionMembers + ` (
			collection_id UUID NOT NULL REFERENCES ` + tables.Collections + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			permission TEXT NOT NULL CHECK (permission IN ('read', 'write')),
			invited_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Snippets + ` (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			collection_id UUID REFERENCES ` + tables.Collections + `(id) ON DELETE SET NULL,
			author_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
			public_id TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.SnippetBlocks + ` (
			id UUID PRIMARY KEY,
			snippet_id UUID NOT NULL REFERENCES ` + tables.Snippets + `(id) ON DELETE CASCADE,
			"order" INTEGER NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('markdown', 'code', 'image', 'file')),
			content TEXT,
			language TEXT,
			file_path TEXT,
			file_name TEXT,
			file_size BIGINT,
			UNIQUE (snippet_id, "order")
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Tags + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT,
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.SnippetTags + ` (
			snippet_id UUID NOT NULL REFERENCES ` + tables.Snippets + `(id) ON DELETE CASCADE,
			tag_id UUID NOT NULL REFERENCES ` + tables.Tags + `(id) ON DELETE CASCADE,
			PRIMARY KEY (snippet_id, tag_id)
		)`,
		// Derived data: no foreign key so a rebuild can always repair it
		`CREATE TABLE IF NOT EXISTS ` + tables.SearchDocuments + ` (
			snippet_id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			indexed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `tags_user_name ON ` + tables.Tags + `(user_id, lower(name))`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `collections_parent ON ` + tables.Collections + `(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `collections_owner ON ` + tables.Collections + `(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `collection_members_user ON ` + tables.CollectionMembers + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `snippets_author_updated ON ` + tables.Snippets + `(author_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `snippets_collection ON ` + tables.Snippets + `(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `snippet_tags_tag ON ` + tables.SnippetTags + `(tag_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `search_documents_user ON ` + tables.SearchDocuments + `(user_id)`,
		// Superseded by the words index, which parses normalized text
		`DROP INDEX IF EXISTS idx_` + tablePrefix + `search_documents_fts`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `search_documents_words ON ` + tables.SearchDocuments +
			` USING GIN (to_tsvector('simple', ` + SearchVectorSource + `))`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables in reverse order (to respect foreign keys)
func DropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) ([]string, error) {
	all := tables.All()
	dropped := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+all[i]+" CASCADE"); err != nil {
			return dropped, fmt.Errorf("drop %s: %w", all[i], err)
		}
		dropped = append(dropped, all[i])
	}
	return dropped, nil
}

// ClearData deletes every row but keeps the schema
func ClearData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(tables.All(), ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
