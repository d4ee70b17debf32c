package vault

import (
	"context"
	"fmt"

	"snipvault/internal/domain/repositories"
)

// queryIDs runs a query returning a single id column
func queryIDs(ctx context.Context, executor repositories.DBTX, query string, args ...interface{}) ([]string, error) {
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
