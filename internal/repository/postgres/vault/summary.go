package vault

import (
	"encoding/json"
	"fmt"

	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
)

// summaryColumns selects a SnippetSummary for snippet alias s joined to
// collection alias c. Tags come back as a JSON array ordered by name.
func summaryColumns(t *postgres.TableNames) string {
	return fmt.Sprintf(`
		s.id, s.title, s.status, s.collection_id, c.name, c.icon, s.author_id,
		COALESCE((
			SELECT json_agg(json_build_object('id', tg.id, 'name', tg.name, 'color', tg.color) ORDER BY tg.name, tg.id)
			FROM %[1]s st JOIN %[2]s tg ON tg.id = st.tag_id
			WHERE st.snippet_id = s.id
		), '[]'::json),
		(
			SELECT left(b.content, %[4]d) FROM %[3]s b
			WHERE b.snippet_id = s.id AND b.type IN ('markdown', 'code') AND COALESCE(b.content, '') <> ''
			ORDER BY b."order" LIMIT 1
		),
		(
			SELECT b.language FROM %[3]s b
			WHERE b.snippet_id = s.id AND b.type = 'code'
			ORDER BY b."order" LIMIT 1
		),
		s.public_id, s.is_favorite, s.is_pinned, s.updated_at`,
		t.SnippetTags, t.Tags, t.SnippetBlocks, models.PreviewLength)
}

// scanSummary scans the summaryColumns projection plus any extra trailing columns
func scanSummary(row pgx.Row, extra ...interface{}) (models.SnippetSummary, error) {
	var (
		summary        models.SnippetSummary
		collectionName *string
		collectionIcon *string
		tagsJSON       []byte
	)
	targets := []interface{}{
		&summary.ID,
		&summary.Title,
		&summary.Status,
		&summary.CollectionID,
		&collectionName,
		&collectionIcon,
		&summary.AuthorID,
		&tagsJSON,
		&summary.Preview,
		&summary.Language,
		&summary.PublicID,
		&summary.IsFavorite,
		&summary.IsPinned,
		&summary.UpdatedAt,
	}
	if err := row.Scan(append(targets, extra...)...); err != nil {
		return summary, err
	}

	if summary.CollectionID != nil && collectionName != nil {
		summary.Collection = &models.CollectionRef{
			ID:   *summary.CollectionID,
			Name: *collectionName,
			Icon: collectionIcon,
		}
	}

	summary.Tags = []models.TagRef{}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &summary.Tags); err != nil {
			return summary, fmt.Errorf("decode summary tags: %w", err)
		}
	}
	return summary, nil
}
