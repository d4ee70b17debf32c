package vault

import (
	"context"
	"errors"
	"testing"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnippet_AuthorKeepsOwnerRank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	ben := env.user(t, "ben")
	c := env.collection(t, ana, "Team", nil)

	_, err := env.members.AddMember(ctx, ana, c, &vaultSvc.AddMemberRequest{Email: "ben@example.com", Permission: models.MemberWrite})
	require.NoError(t, err)

	snip := env.snippet(t, ben, "Ben's helper", &c, "func help() {}")
	assert.Equal(t, models.RankOwner, snip.Rank)

	// The collection owner also owns everything filed inside
	rank, err := env.resolver.SnippetRank(ctx, ana, snip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RankOwner, rank)

	require.NoError(t, env.members.RemoveMember(ctx, ana, c, ben))

	rank, err = env.resolver.SnippetRank(ctx, ben, snip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RankOwner, rank, "authorship outlives membership")

	_, err = env.snippets.UpdateSnippet(ctx, ben, snip.ID, &vaultSvc.UpdateSnippetRequest{Title: strPtr("Still mine")})
	require.NoError(t, err)
}

func TestSnippet_MemberRanks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	reader := env.user(t, "rita")
	stranger := env.user(t, "sam")
	c := env.collection(t, ana, "Team", nil)

	_, err := env.members.AddMember(ctx, ana, c, &vaultSvc.AddMemberRequest{Email: "rita@example.com", Permission: models.MemberRead})
	require.NoError(t, err)

	filed := env.snippet(t, ana, "Filed", &c, "x := 1")
	unfiled := env.snippet(t, ana, "Private", nil, "y := 2")

	detail, err := env.snippets.GetSnippet(ctx, reader, filed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RankRead, detail.Rank)
	require.NotNil(t, detail.Collection)
	assert.Equal(t, "Team", detail.Collection.Name)

	_, err = env.snippets.UpdateSnippet(ctx, reader, filed.ID, &vaultSvc.UpdateSnippetRequest{Title: strPtr("nope")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.snippets.GetSnippet(ctx, reader, unfiled.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.snippets.GetSnippet(ctx, stranger, filed.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.snippets.CreateSnippet(ctx, reader, &vaultSvc.CreateSnippetRequest{Title: "x", CollectionID: &c})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = env.snippets.DeleteSnippet(ctx, reader, filed.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.snippets.SetFavorite(ctx, reader, filed.ID, true)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSnippet_WriterCannotUnfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	wes := env.user(t, "wes")
	c := env.collection(t, ana, "Team", nil)

	_, err := env.members.AddMember(ctx, ana, c, &vaultSvc.AddMemberRequest{Email: "wes@example.com", Permission: models.MemberWrite})
	require.NoError(t, err)
	snip := env.snippet(t, ana, "Shared", &c, "z := 3")

	_, err = env.snippets.UpdateSnippet(ctx, wes, snip.ID, &vaultSvc.UpdateSnippetRequest{
		Title:        strPtr("edited"),
		CollectionID: vaultSvc.Set(nil),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	detail, err := env.snippets.GetSnippet(ctx, ana, snip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shared", detail.Title)
	assert.Equal(t, &c, detail.CollectionID)
}

func TestSnippet_PublishLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	snip := env.snippet(t, ana, "Retry Logic", nil, "for i := 0; i < 3; i++ {}")

	assert.Equal(t, models.StatusDraft, snip.Status)
	assert.Nil(t, snip.PublicID)

	published, err := env.snippets.UpdateSnippet(ctx, ana, snip.ID, &vaultSvc.UpdateSnippetRequest{Status: strPtr(models.StatusPublished)})
	require.NoError(t, err)
	require.NotNil(t, published.PublicID)
	publicID := *published.PublicID
	assert.True(t, ValidPublicID(publicID))

	// Edits and re-publishing keep the id stable
	edited, err := env.snippets.UpdateSnippet(ctx, ana, snip.ID, &vaultSvc.UpdateSnippetRequest{
		Title:  strPtr("Retry Logic v2"),
		Status: strPtr(models.StatusPublished),
	})
	require.NoError(t, err)
	require.NotNil(t, edited.PublicID)
	assert.Equal(t, publicID, *edited.PublicID)

	public, err := env.snippets.GetPublicSnippet(ctx, publicID)
	require.NoError(t, err)
	assert.Equal(t, "Retry Logic v2", public.Title)
	assert.Equal(t, "ana", public.AuthorName)
	assert.Len(t, public.Blocks, 1)

	draft, err := env.snippets.UpdateSnippet(ctx, ana, snip.ID, &vaultSvc.UpdateSnippetRequest{Status: strPtr(models.StatusDraft)})
	require.NoError(t, err)
	assert.Nil(t, draft.PublicID)

	_, err = env.snippets.GetPublicSnippet(ctx, publicID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.snippets.GetPublicSnippet(ctx, "../etc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnippet_PublicIDCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")

	svc := env.snippets.(*snippetService)
	ids := []string{"AAAAAAAAAA", "AAAAAAAAAA", "BBBBBBBBBB"}
	svc.newPublicID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	first, err := env.snippets.CreateSnippet(ctx, ana, &vaultSvc.CreateSnippetRequest{Title: "one", Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAA", *first.PublicID)

	second, err := env.snippets.CreateSnippet(ctx, ana, &vaultSvc.CreateSnippetRequest{Title: "two", Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBBBB", *second.PublicID)

	svc.newPublicID = func() (string, error) { return "AAAAAAAAAA", nil }
	_, err = env.snippets.CreateSnippet(ctx, ana, &vaultSvc.CreateSnippetRequest{Title: "three", Status: models.StatusPublished})
	assert.Error(t, err)
}

func TestSnippet_IndexFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	snip := env.snippet(t, ana, "Original", nil, "original body")

	env.store.failUpsert = errors.New("index unavailable")

	_, err := env.snippets.UpdateSnippet(ctx, ana, snip.ID, &vaultSvc.UpdateSnippetRequest{Title: strPtr("Changed")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexDesync)

	var desync *domain.IndexDesyncError
	require.ErrorAs(t, err, &desync)
	assert.Equal(t, snip.ID, desync.SnippetID)

	_, err = env.snippets.CreateSnippet(ctx, ana, &vaultSvc.CreateSnippetRequest{Title: "Never stored"})
	assert.ErrorIs(t, err, domain.ErrIndexDesync)

	env.store.failUpsert = nil

	detail, err := env.snippets.GetSnippet(ctx, ana, snip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", detail.Title)

	page, err := env.snippets.ListSnippets(ctx, ana, &vaultSvc.ListSnippetsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	doc, err := (&fakeIndexRepo{s: env.store}).Get(ctx, snip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", doc.Title)
}

func TestSnippet_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	ben := env.user(t, "ben")
	bensTag := env.tag(t, ben, "secret")
	tooMany := make([]vaultSvc.BlockInput, 201)
	for i := range tooMany {
		tooMany[i] = vaultSvc.BlockInput{Type: models.BlockMarkdown}
	}

	tests := []struct {
		name string
		req  *vaultSvc.CreateSnippetRequest
	}{
		{"blank title", &vaultSvc.CreateSnippetRequest{Title: "  "}},
		{"unknown status", &vaultSvc.CreateSnippetRequest{Title: "x", Status: "archived"}},
		{"unknown block type", &vaultSvc.CreateSnippetRequest{Title: "x", Blocks: []vaultSvc.BlockInput{{Type: "video"}}}},
		{"image without path", &vaultSvc.CreateSnippetRequest{Title: "x", Blocks: []vaultSvc.BlockInput{{Type: models.BlockImage}}}},
		{"too many blocks", &vaultSvc.CreateSnippetRequest{Title: "x", Blocks: tooMany}},
		{"unknown collection", &vaultSvc.CreateSnippetRequest{Title: "x", CollectionID: strPtr("nope")}},
		{"someone else's tag", &vaultSvc.CreateSnippetRequest{Title: "x", TagIDs: []string{bensTag}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.snippets.CreateSnippet(ctx, ana, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSnippet_BlocksAndFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	snip := env.snippet(t, ana, "Blocks", nil, "first")
	require.Len(t, snip.Blocks, 1)

	block, err := env.snippets.UpdateBlock(ctx, ana, snip.ID, snip.Blocks[0].ID, &vaultSvc.UpdateBlockRequest{
		Content:  strPtr("exponential backoff"),
		Language: strPtr("python"),
	})
	require.NoError(t, err)
	assert.Equal(t, "exponential backoff", block.Text())
	assert.Equal(t, "python", *block.Language)

	results, err := env.search.Search(ctx, ana, &models.SearchRequest{Query: "backoff"})
	require.NoError(t, err)
	require.Len(t, results.Results, 1)

	_, err = env.snippets.UpdateBlock(ctx, ana, snip.ID, "missing", &vaultSvc.UpdateBlockRequest{Content: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	fav, err := env.snippets.SetFavorite(ctx, ana, snip.ID, true)
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)

	pinned, err := env.snippets.SetPinned(ctx, ana, snip.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.True(t, pinned.IsFavorite)
}

func TestSnippet_ListCollectionSubtree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")

	root := env.collection(t, ana, "Root", nil)
	child := env.collection(t, ana, "Child", &root)
	env.snippet(t, ana, "At root", &root, "a")
	env.snippet(t, ana, "In child", &child, "b")
	env.snippet(t, ana, "Unfiled", nil, "c")

	page, err := env.snippets.ListCollectionSnippets(ctx, ana, root, &vaultSvc.ListSnippetsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = env.snippets.ListCollectionSnippets(ctx, ana, root, &vaultSvc.ListSnippetsRequest{Subtree: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = env.snippets.ListSnippets(ctx, ana, &vaultSvc.ListSnippetsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Snippets, 2)
	assert.True(t, page.HasMore)

	_, err = env.snippets.ListSnippets(ctx, ana, &vaultSvc.ListSnippetsRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSnippet_AttachDetachTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.user(t, "ana")
	tagID := env.tag(t, ana, "networking")
	snip := env.snippet(t, ana, "Dialer", nil, "net.Dial")

	detail, err := env.snippets.AttachTag(ctx, ana, snip.ID, tagID)
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "networking", detail.Tags[0].Name)

	// Attaching twice is a no-op
	detail, err = env.snippets.AttachTag(ctx, ana, snip.ID, tagID)
	require.NoError(t, err)
	assert.Len(t, detail.Tags, 1)

	results, err := env.search.Search(ctx, ana, &models.SearchRequest{TagName: "networking"})
	require.NoError(t, err)
	assert.Len(t, results.Results, 1)

	// The tag filter wants the exact name
	results, err = env.search.Search(ctx, ana, &models.SearchRequest{TagName: "Networking"})
	require.NoError(t, err)
	assert.Empty(t, results.Results)

	detail, err = env.snippets.DetachTag(ctx, ana, snip.ID, tagID)
	require.NoError(t, err)
	assert.Empty(t, detail.Tags)

	results, err = env.search.Search(ctx, ana, &models.SearchRequest{Query: "networking"})
	require.NoError(t, err)
	assert.Empty(t, results.Results)
}

// interleavedSnippetRepo runs hook once, right after the first snippet read
type interleavedSnippetRepo struct {
	vaultRepo.SnippetRepository
	hook func()
}

func (r *interleavedSnippetRepo) GetByID(ctx context.Context, id string) (*models.Snippet, error) {
	sn, err := r.SnippetRepository.GetByID(ctx, id)
	if hook := r.hook; hook != nil {
		r.hook = nil
		hook()
	}
	return sn, err
}

func TestSnippet_FlagsKeepConcurrentEdit(t *testing.T) {
	tests := []struct {
		name string
		set  func(svc vaultSvc.SnippetService, ctx context.Context, userID, id string) (*models.Snippet, error)
		flag func(*models.Snippet) bool
	}{
		{
			name: "favorite",
			set: func(svc vaultSvc.SnippetService, ctx context.Context, userID, id string) (*models.Snippet, error) {
				return svc.SetFavorite(ctx, userID, id, true)
			},
			flag: func(sn *models.Snippet) bool { return sn.IsFavorite },
		},
		{
			name: "pinned",
			set: func(svc vaultSvc.SnippetService, ctx context.Context, userID, id string) (*models.Snippet, error) {
				return svc.SetPinned(ctx, userID, id, true)
			},
			flag: func(sn *models.Snippet) bool { return sn.IsPinned },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			ana := env.user(t, "ana")
			snip := env.snippet(t, ana, "Old title", nil, "x")

			// A content edit commits between the flag call's read and its write
			repo := &interleavedSnippetRepo{SnippetRepository: env.snippetRepo}
			repo.hook = func() {
				_, err := env.snippets.UpdateSnippet(ctx, ana, snip.ID, &vaultSvc.UpdateSnippetRequest{
					Title:  strPtr("New title"),
					Status: strPtr(models.StatusPublished),
				})
				require.NoError(t, err)
			}

			flagged, err := tt.set(env.servicesWith(func(r *vaultRepo.Repositories) { r.Snippets = repo }).Snippets, ctx, ana, snip.ID)
			require.NoError(t, err)
			assert.True(t, tt.flag(flagged))
			assert.Equal(t, "New title", flagged.Title)

			stored, err := env.snippetRepo.GetByID(ctx, snip.ID)
			require.NoError(t, err)
			assert.Equal(t, "New title", stored.Title)
			assert.Equal(t, models.StatusPublished, stored.Status)
			assert.NotNil(t, stored.PublicID)
			assert.True(t, tt.flag(stored))

			doc, err := (&fakeIndexRepo{s: env.store}).Get(ctx, snip.ID)
			require.NoError(t, err)
			assert.Equal(t, stored.Title, doc.Title)
		})
	}
}
