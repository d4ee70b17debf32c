package vault_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"snipvault/internal/auth"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/repository/postgres"
	postgresVault "snipvault/internal/repository/postgres/vault"
	serviceVault "snipvault/internal/service/vault"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// INTEGRATION TESTS - require TEST_DATABASE_URL
// ============================================================================

type testDB struct {
	pool     *pgxpool.Pool
	tables   *postgres.TableNames
	repos    *vaultRepo.Repositories
	services *serviceVault.Services
}

// setupDB creates a uniquely prefixed schema and drops it when the test ends
func setupDB(t *testing.T) *testDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, dsn)
	require.NoError(t, err)

	prefix := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + "_"
	tables := postgres.NewTableNames(prefix)
	require.NoError(t, postgres.RunSchema(ctx, pool, tables, prefix))

	t.Cleanup(func() {
		_, _ = postgres.DropAllTables(context.Background(), pool, tables)
		pool.Close()
	})

	repos := postgresVault.NewRepositories(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: discardLogger(),
	})

	return &testDB{
		pool:     pool,
		tables:   tables,
		repos:    repos,
		services: serviceVault.SetupServices(repos, auth.NewBcryptHasher(bcrypt.MinCost), 2, discardLogger()),
	}
}

func (db *testDB) user(t *testing.T, name string) string {
	t.Helper()
	user, _, err := db.services.Users.CreateUser(context.Background(), &vaultSvc.CreateUserRequest{
		Email:    name + "@example.com",
		Name:     name,
		Password: "password123",
	})
	require.NoError(t, err)
	return user.ID
}

func (db *testDB) collection(t *testing.T, owner, name string, parentID *string) string {
	t.Helper()
	view, err := db.services.Collections.CreateCollection(context.Background(), owner, &vaultSvc.CreateCollectionRequest{
		Name:     name,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return view.ID
}

func (db *testDB) snippet(t *testing.T, author, title string, collectionID *string, code string, tagIDs ...string) string {
	t.Helper()
	detail, err := db.services.Snippets.CreateSnippet(context.Background(), author, &vaultSvc.CreateSnippetRequest{
		Title:        title,
		CollectionID: collectionID,
		Blocks:       []vaultSvc.BlockInput{{Type: models.BlockCode, Content: &code}},
		TagIDs:       tagIDs,
	})
	require.NoError(t, err)
	return detail.ID
}

func titles(results []models.SnippetSummary) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func TestIntegration_SearchFollowsContent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	backoff, err := db.services.Tags.CreateTag(ctx, ana, &vaultSvc.CreateTagRequest{Name: "backoff"})
	require.NoError(t, err)

	db.snippet(t, ana, "Retry with backoff", nil, "exponential delay", backoff.ID)
	db.snippet(t, ana, "Plain retry", nil, "loop forever")
	db.snippet(t, ana, "Unrelated", nil, "hello world")

	search := func(req *models.SearchRequest) []string {
		t.Helper()
		results, err := db.services.Search.Search(ctx, ana, req)
		require.NoError(t, err)
		return titles(results.Results)
	}

	// Two matched terms outrank one
	assert.Equal(t, []string{"Retry with backoff", "Plain retry"}, search(&models.SearchRequest{Query: "retry backoff"}))
	// Prefix match
	assert.Equal(t, []string{"Retry with backoff"}, search(&models.SearchRequest{Query: "expo"}))
	// Tag filter wants the exact tag name
	assert.Equal(t, []string{"Retry with backoff"}, search(&models.SearchRequest{Query: "retry", TagName: "backoff"}))
	assert.Empty(t, search(&models.SearchRequest{Query: "retry", TagName: "Backoff"}))
	// Punctuation-only query matches nothing
	assert.Empty(t, search(&models.SearchRequest{Query: "&|!:*"}))

	// Renaming the tag reindexes the snippet
	_, err = db.services.Tags.UpdateTag(ctx, ana, backoff.ID, &vaultSvc.UpdateTagRequest{Name: strPtr("jitter")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Retry with backoff"}, search(&models.SearchRequest{Query: "jitter"}))

	// Deleting the tag drops it from the document
	require.NoError(t, db.services.Tags.DeleteTag(ctx, ana, backoff.ID))
	assert.Empty(t, search(&models.SearchRequest{Query: "jitter"}))
}

func TestIntegration_SearchFindsVerbatimTokens(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	db.snippet(t, ana, "Go hello", nil, `fmt.Println("hello")`)
	db.snippet(t, ana, "JS debug", nil, "console.log(value)")
	db.snippet(t, ana, "Shebang", nil, "#!/usr/bin/env bash\nset -euo pipefail")
	db.snippet(t, ana, "Snake case", nil, "max_retry_count = 3")

	tests := []struct {
		query string
		want  []string
	}{
		{"Println", []string{"Go hello"}},
		{"fmt.Println", []string{"Go hello"}},
		{"print", []string{"Go hello"}},
		{"log", []string{"JS debug"}},
		{"console.log", []string{"JS debug"}},
		{"console.lo", []string{"JS debug"}},
		{"consol.log", []string{}},
		{"nsole", []string{}},
		{"/usr/bin/env", []string{"Shebang"}},
		{"env", []string{"Shebang"}},
		{"pipefail", []string{"Shebang"}},
		{"retry_count", []string{"Snake case"}},
		{"count", []string{"Snake case"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := db.services.Search.Search(ctx, ana, &models.SearchRequest{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(results.Results))
		})
	}
}

func TestIntegration_MatchedTermsCountedInSQL(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	db.snippet(t, ana, "Dial with retry", nil, "net.Dial(addr) // backoff")
	db.snippet(t, ana, "Retry only", nil, "loop")

	results, err := db.services.Search.Search(ctx, ana, &models.SearchRequest{Query: "retry net.Dial backoff"})
	require.NoError(t, err)
	require.Len(t, results.Results, 2)
	assert.Equal(t, "Dial with retry", results.Results[0].Title)
	assert.Equal(t, 3, results.Results[0].MatchedTerms)
	assert.Equal(t, 1, results.Results[1].MatchedTerms)
}

func TestIntegration_FlagsLeaveContentAlone(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")
	id := db.snippet(t, ana, "Original", nil, "alpha")

	_, err := db.services.Snippets.UpdateSnippet(ctx, ana, id, &vaultSvc.UpdateSnippetRequest{
		Title:  strPtr("Renamed"),
		Status: strPtr(models.StatusPublished),
	})
	require.NoError(t, err)

	fav, err := db.services.Snippets.SetFavorite(ctx, ana, id, true)
	require.NoError(t, err)
	pinned, err := db.services.Snippets.SetPinned(ctx, ana, id, true)
	require.NoError(t, err)

	assert.True(t, fav.IsFavorite)
	assert.True(t, pinned.IsFavorite)
	assert.True(t, pinned.IsPinned)
	assert.Equal(t, "Renamed", pinned.Title)
	assert.Equal(t, models.StatusPublished, pinned.Status)
	assert.NotNil(t, pinned.PublicID)

	doc, err := db.repos.SearchIndex.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Title)
}

func TestIntegration_SubtreeAndCycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	c1 := db.collection(t, ana, "C1", nil)
	c2 := db.collection(t, ana, "C2", &c1)
	c3 := db.collection(t, ana, "C3", &c2)
	db.snippet(t, ana, "Top", &c1, "a")
	db.snippet(t, ana, "Deep", &c3, "b")

	ids, err := db.services.Subtree.DescendantIDs(ctx, c1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1, c2, c3}, ids)

	page, err := db.services.Snippets.ListCollectionSnippets(ctx, ana, c1, &vaultSvc.ListSnippetsRequest{Subtree: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = db.services.Snippets.ListCollectionSnippets(ctx, ana, c1, &vaultSvc.ListSnippetsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = db.services.Collections.UpdateCollection(ctx, ana, c1, &vaultSvc.UpdateCollectionRequest{
		ParentID: vaultSvc.Set(&c3),
	})
	assert.ErrorIs(t, err, domain.ErrCycle)

	view, err := db.services.Collections.GetCollection(ctx, ana, c3)
	require.NoError(t, err)
	assert.Equal(t, "C1/C2/C3", view.Path)

	err = db.services.Collections.DeleteCollection(ctx, ana, c2)
	assert.ErrorIs(t, err, domain.ErrNotEmpty)
}

func TestIntegration_RebuildConverges(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	lost := db.snippet(t, ana, "Lost", nil, "alpha")
	stale := db.snippet(t, ana, "Stale", nil, "beta")

	wantLost, err := db.repos.SearchIndex.Get(ctx, lost)
	require.NoError(t, err)
	wantStale, err := db.repos.SearchIndex.Get(ctx, stale)
	require.NoError(t, err)

	// Drift the index behind the services' back
	require.NoError(t, db.repos.SearchIndex.Delete(ctx, lost))
	require.NoError(t, db.repos.SearchIndex.Upsert(ctx, &models.SearchDocument{SnippetID: stale, UserID: ana, Title: "wrong"}))
	require.NoError(t, db.repos.SearchIndex.Upsert(ctx, &models.SearchDocument{SnippetID: uuid.NewString(), UserID: ana, Title: "ghost"}))

	stats, err := db.services.Index.Rebuild(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.OrphansRemoved)
	assert.Equal(t, 2, stats.DocumentsWritten)

	gotLost, err := db.repos.SearchIndex.Get(ctx, lost)
	require.NoError(t, err)
	assert.Equal(t, wantLost, gotLost)
	gotStale, err := db.repos.SearchIndex.Get(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, wantStale, gotStale)

	count, err := db.repos.SearchIndex.Count(ctx, &ana)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Documents of a deleted user go with a full rebuild
	require.NoError(t, db.repos.SearchIndex.Upsert(ctx, &models.SearchDocument{SnippetID: uuid.NewString(), UserID: uuid.NewString(), Title: "abandoned"}))
	stats, err = db.services.Index.Rebuild(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.OrphansRemoved)

	count, err = db.repos.SearchIndex.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// failingIndex wraps the real index and fails every upsert
type failingIndex struct {
	vaultRepo.SearchIndexRepository
}

func (failingIndex) Upsert(context.Context, *models.SearchDocument) error {
	return errors.New("index unavailable")
}

func TestIntegration_IndexFailureRollsBackContent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	repos := *db.repos
	repos.SearchIndex = failingIndex{db.repos.SearchIndex}
	services := serviceVault.SetupServices(&repos, auth.NewBcryptHasher(bcrypt.MinCost), 1, discardLogger())

	code := "never stored"
	_, err := services.Snippets.CreateSnippet(ctx, ana, &vaultSvc.CreateSnippetRequest{
		Title:  "Doomed",
		Blocks: []vaultSvc.BlockInput{{Type: models.BlockCode, Content: &code}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexDesync)

	ids, err := db.repos.Snippets.ListIDsByAuthor(ctx, ana)
	require.NoError(t, err)
	assert.Empty(t, ids, "snippet row rolled back with the failed index write")
}

func TestIntegration_RepositoryEdgeCases(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ana := db.user(t, "ana")

	// Malformed ids read as missing
	_, err := db.services.Snippets.GetSnippet(ctx, ana, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Tag names are unique per user regardless of case
	_, err = db.services.Tags.CreateTag(ctx, ana, &vaultSvc.CreateTagRequest{Name: "Go"})
	require.NoError(t, err)
	_, err = db.services.Tags.CreateTag(ctx, ana, &vaultSvc.CreateTagRequest{Name: "go"})
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.NotEmpty(t, conflictErr.ResourceID)

	// Duplicate emails conflict
	_, _, err = db.services.Users.CreateUser(ctx, &vaultSvc.CreateUserRequest{
		Email:    "ANA@example.com",
		Name:     "Other Ana",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
