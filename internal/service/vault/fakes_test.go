package vault

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"snipvault/internal/auth"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	"snipvault/internal/domain/repositories"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// store is an in-memory stand-in for the database. Reads and writes copy
// values so services only change state through repository calls.
type store struct {
	mu          sync.Mutex
	users       map[string]models.User
	collections map[string]models.Collection
	members     map[string]models.CollectionMember // collectionID + "/" + userID
	snippets    map[string]models.Snippet
	blocks      map[string][]models.Block
	tags        map[string]models.Tag
	snippetTags map[string]map[string]bool
	docs        map[string]models.SearchDocument

	failUpsert error
}

func newStore() *store {
	return &store{
		users:       make(map[string]models.User),
		collections: make(map[string]models.Collection),
		members:     make(map[string]models.CollectionMember),
		snippets:    make(map[string]models.Snippet),
		blocks:      make(map[string][]models.Block),
		tags:        make(map[string]models.Tag),
		snippetTags: make(map[string]map[string]bool),
		docs:        make(map[string]models.SearchDocument),
	}
}

type storeSnapshot struct {
	users       map[string]models.User
	collections map[string]models.Collection
	members     map[string]models.CollectionMember
	snippets    map[string]models.Snippet
	blocks      map[string][]models.Block
	tags        map[string]models.Tag
	snippetTags map[string]map[string]bool
	docs        map[string]models.SearchDocument
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *store) snapshot() *storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := make(map[string][]models.Block, len(s.blocks))
	for k, v := range s.blocks {
		blocks[k] = append([]models.Block(nil), v...)
	}
	links := make(map[string]map[string]bool, len(s.snippetTags))
	for k, v := range s.snippetTags {
		links[k] = copyMap(v)
	}
	return &storeSnapshot{
		users:       copyMap(s.users),
		collections: copyMap(s.collections),
		members:     copyMap(s.members),
		snippets:    copyMap(s.snippets),
		blocks:      blocks,
		tags:        copyMap(s.tags),
		snippetTags: links,
		docs:        copyMap(s.docs),
	}
}

func (s *store) restore(snap *storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.collections = snap.collections
	s.members = snap.members
	s.snippets = snap.snippets
	s.blocks = snap.blocks
	s.tags = snap.tags
	s.snippetTags = snap.snippetTags
	s.docs = snap.docs
}

// fakeTxManager rolls the whole store back when the outermost fn fails.
// Nested calls join the outer transaction.
type fakeTxManager struct {
	store *store
}

type fakeTxKey struct{}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// --- users ---

type fakeUserRepo struct{ s *store }

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return &domain.ConflictError{Message: "user exists", ResourceType: "user", ResourceID: u.ID}
		}
	}
	u := *user
	u.Email = strings.ToLower(u.Email)
	r.s.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (r *fakeUserRepo) GetByAPIKey(_ context.Context, apiKey string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.APIKey != nil && *u.APIKey == apiKey {
			return &u, nil
		}
	}
	return nil, notFound("api key", "")
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return notFound("user", user.ID)
	}
	for _, u := range r.s.users {
		if u.ID != user.ID && u.APIKey != nil && user.APIKey != nil && *u.APIKey == *user.APIKey {
			return fmt.Errorf("api key collision: %w", domain.ErrConflict)
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- collections ---

type fakeCollectionRepo struct{ s *store }

func (r *fakeCollectionRepo) Create(_ context.Context, c *models.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.collections[c.ID] = *c
	return nil
}

func (r *fakeCollectionRepo) GetByID(_ context.Context, id string) (*models.Collection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collections[id]
	if !ok {
		return nil, notFound("collection", id)
	}
	return &c, nil
}

func (r *fakeCollectionRepo) Update(_ context.Context, c *models.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.collections[c.ID]; !ok {
		return notFound("collection", c.ID)
	}
	r.s.collections[c.ID] = *c
	return nil
}

func (r *fakeCollectionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.collections[id]; !ok {
		return notFound("collection", id)
	}
	for _, c := range r.s.collections {
		if c.ParentID != nil && *c.ParentID == id {
			return &domain.NotEmptyError{CollectionID: id, Children: 1}
		}
	}
	delete(r.s.collections, id)
	for key, m := range r.s.members {
		if m.CollectionID == id {
			delete(r.s.members, key)
		}
	}
	for sid, sn := range r.s.snippets {
		if sn.CollectionID != nil && *sn.CollectionID == id {
			sn.CollectionID = nil
			r.s.snippets[sid] = sn
		}
	}
	return nil
}

func (r *fakeCollectionRepo) filter(keep func(models.Collection) bool) []models.Collection {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Collection
	for _, c := range r.s.collections {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeCollectionRepo) ListOwned(_ context.Context, ownerID string) ([]models.Collection, error) {
	return r.filter(func(c models.Collection) bool { return c.OwnerID == ownerID }), nil
}

func (r *fakeCollectionRepo) ListShared(_ context.Context, userID string) ([]models.SharedCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SharedCollection
	for _, m := range r.s.members {
		c, ok := r.s.collections[m.CollectionID]
		if m.UserID != userID || !ok || c.OwnerID == userID {
			continue
		}
		out = append(out, models.SharedCollection{Collection: c, Permission: m.Permission})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCollectionRepo) ListChildren(_ context.Context, parentID string) ([]models.Collection, error) {
	return r.filter(func(c models.Collection) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}), nil
}

func (r *fakeCollectionRepo) ListChildLinks(_ context.Context, parentIDs []string) ([]models.ChildLink, error) {
	parents := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	var links []models.ChildLink
	for _, c := range r.filter(func(c models.Collection) bool {
		return c.ParentID != nil && parents[*c.ParentID]
	}) {
		links = append(links, models.ChildLink{ID: c.ID, ParentID: *c.ParentID})
	}
	return links, nil
}

func (r *fakeCollectionRepo) CountContents(_ context.Context, id string) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var snippets, children int
	for _, sn := range r.s.snippets {
		if sn.CollectionID != nil && *sn.CollectionID == id {
			snippets++
		}
	}
	for _, c := range r.s.collections {
		if c.ParentID != nil && *c.ParentID == id {
			children++
		}
	}
	return snippets, children, nil
}

func (r *fakeCollectionRepo) SetShared(_ context.Context, id string, shared bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collections[id]
	if !ok {
		return notFound("collection", id)
	}
	c.IsShared = shared
	r.s.collections[id] = c
	return nil
}

// --- members ---

type fakeMemberRepo struct{ s *store }

func memberKey(collectionID, userID string) string { return collectionID + "/" + userID }

func (r *fakeMemberRepo) Get(_ context.Context, collectionID, userID string) (*models.CollectionMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberKey(collectionID, userID)]
	if !ok {
		return nil, notFound("member", userID)
	}
	return &m, nil
}

func (r *fakeMemberRepo) List(_ context.Context, collectionID string) ([]models.CollectionMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.CollectionMember
	for _, m := range r.s.members {
		if m.CollectionID != collectionID {
			continue
		}
		u := r.s.users[m.UserID]
		m.UserName, m.UserEmail = u.Name, u.Email
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserEmail < out[j].UserEmail })
	return out, nil
}

func (r *fakeMemberRepo) Add(_ context.Context, m *models.CollectionMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(m.CollectionID, m.UserID)
	if _, ok := r.s.members[key]; ok {
		return &domain.ConflictError{Message: "already a member", ResourceType: "member", ResourceID: m.UserID}
	}
	r.s.members[key] = *m
	return nil
}

func (r *fakeMemberRepo) UpdatePermission(_ context.Context, collectionID, userID, permission string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(collectionID, userID)
	m, ok := r.s.members[key]
	if !ok {
		return notFound("member", userID)
	}
	m.Permission = permission
	r.s.members[key] = m
	return nil
}

func (r *fakeMemberRepo) Remove(_ context.Context, collectionID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(collectionID, userID)
	if _, ok := r.s.members[key]; !ok {
		return notFound("member", userID)
	}
	delete(r.s.members, key)
	return nil
}

func (r *fakeMemberRepo) Count(_ context.Context, collectionID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.members {
		if m.CollectionID == collectionID {
			n++
		}
	}
	return n, nil
}

// --- snippets ---

type fakeSnippetRepo struct{ s *store }

func (r *fakeSnippetRepo) Create(_ context.Context, sn *models.Snippet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.snippets[sn.ID] = *sn
	return nil
}

func (r *fakeSnippetRepo) GetByID(_ context.Context, id string) (*models.Snippet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn, ok := r.s.snippets[id]
	if !ok {
		return nil, notFound("snippet", id)
	}
	return &sn, nil
}

func (r *fakeSnippetRepo) GetForUpdate(ctx context.Context, id string) (*models.Snippet, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSnippetRepo) GetByPublicID(_ context.Context, publicID string) (*models.Snippet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sn := range r.s.snippets {
		if sn.PublicID != nil && *sn.PublicID == publicID {
			return &sn, nil
		}
	}
	return nil, notFound("public snippet", publicID)
}

func (r *fakeSnippetRepo) Update(_ context.Context, sn *models.Snippet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.snippets[sn.ID]; !ok {
		return notFound("snippet", sn.ID)
	}
	r.s.snippets[sn.ID] = *sn
	return nil
}

func (r *fakeSnippetRepo) SetFlags(_ context.Context, id string, favorite, pinned *bool, at time.Time) (*models.Snippet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn, ok := r.s.snippets[id]
	if !ok {
		return nil, notFound("snippet", id)
	}
	if favorite != nil {
		sn.IsFavorite = *favorite
	}
	if pinned != nil {
		sn.IsPinned = *pinned
	}
	sn.UpdatedAt = at
	r.s.snippets[id] = sn
	return &sn, nil
}

func (r *fakeSnippetRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sn, ok := r.s.snippets[id]
	if !ok {
		return notFound("snippet", id)
	}
	sn.UpdatedAt = at
	r.s.snippets[id] = sn
	return nil
}

func (r *fakeSnippetRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.snippets[id]; !ok {
		return notFound("snippet", id)
	}
	delete(r.s.snippets, id)
	delete(r.s.blocks, id)
	delete(r.s.snippetTags, id)
	return nil
}

func (r *fakeSnippetRepo) ListIDsByAuthor(_ context.Context, authorID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, sn := range r.s.snippets {
		if sn.AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeSnippetRepo) List(_ context.Context, filter *models.SnippetFilter) ([]models.SnippetSummary, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inCollections := make(map[string]bool, len(filter.CollectionIDs))
	for _, id := range filter.CollectionIDs {
		inCollections[id] = true
	}

	var all []models.SnippetSummary
	for _, sn := range r.s.snippets {
		if filter.AuthorID != "" && sn.AuthorID != filter.AuthorID {
			continue
		}
		if len(filter.CollectionIDs) > 0 && (sn.CollectionID == nil || !inCollections[*sn.CollectionID]) {
			continue
		}
		if filter.Status != "" && sn.Status != filter.Status {
			continue
		}
		all = append(all, r.s.summaryLocked(sn))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	total := len(all)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return all[start:end], total, nil
}

func (s *store) summaryLocked(sn models.Snippet) models.SnippetSummary {
	blocks := s.blocks[sn.ID]
	var tags []models.TagRef
	for tagID := range s.snippetTags[sn.ID] {
		t := s.tags[tagID]
		tags = append(tags, t.Ref())
	}
	models.SortTagRefs(tags)

	summary := models.SnippetSummary{
		ID:           sn.ID,
		Title:        sn.Title,
		Status:       sn.Status,
		CollectionID: sn.CollectionID,
		AuthorID:     sn.AuthorID,
		Tags:         tags,
		Preview:      models.Preview(blocks),
		Language:     models.FirstCodeLanguage(blocks),
		PublicID:     sn.PublicID,
		IsFavorite:   sn.IsFavorite,
		IsPinned:     sn.IsPinned,
		UpdatedAt:    sn.UpdatedAt,
	}
	if sn.CollectionID != nil {
		if c, ok := s.collections[*sn.CollectionID]; ok {
			ref := c.Ref()
			summary.Collection = &ref
		}
	}
	return summary
}

// --- blocks ---

type fakeBlockRepo struct{ s *store }

func (r *fakeBlockRepo) ListBySnippet(_ context.Context, snippetID string) ([]models.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.Block{}, r.s.blocks[snippetID]...), nil
}

func (r *fakeBlockRepo) ReplaceAll(_ context.Context, snippetID string, blocks []models.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.blocks[snippetID] = append([]models.Block(nil), blocks...)
	return nil
}

func (r *fakeBlockRepo) GetByID(_ context.Context, snippetID, blockID string) (*models.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.blocks[snippetID] {
		if b.ID == blockID {
			return &b, nil
		}
	}
	return nil, notFound("block", blockID)
}

func (r *fakeBlockRepo) Update(_ context.Context, block *models.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	blocks := append([]models.Block(nil), r.s.blocks[block.SnippetID]...)
	for i := range blocks {
		if blocks[i].ID == block.ID {
			blocks[i] = *block
			r.s.blocks[block.SnippetID] = blocks
			return nil
		}
	}
	return notFound("block", block.ID)
}

// --- tags ---

type fakeTagRepo struct{ s *store }

func (r *fakeTagRepo) Create(_ context.Context, tag *models.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tags {
		if t.UserID == tag.UserID && models.SameTagName(t.Name, tag.Name) {
			return &domain.ConflictError{Message: "tag exists", ResourceType: "tag", ResourceID: t.ID}
		}
	}
	r.s.tags[tag.ID] = *tag
	return nil
}

func (r *fakeTagRepo) GetByID(_ context.Context, id string) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tags[id]
	if !ok {
		return nil, notFound("tag", id)
	}
	return &t, nil
}

func (r *fakeTagRepo) FindByName(_ context.Context, userID, name string) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tags {
		if t.UserID == userID && models.SameTagName(t.Name, name) {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTagRepo) ListByUser(_ context.Context, userID string) ([]models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tag
	for _, t := range r.s.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTagRepo) Update(_ context.Context, tag *models.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[tag.ID]; !ok {
		return notFound("tag", tag.ID)
	}
	r.s.tags[tag.ID] = *tag
	return nil
}

func (r *fakeTagRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[id]; !ok {
		return notFound("tag", id)
	}
	delete(r.s.tags, id)
	for snippetID, set := range r.s.snippetTags {
		if set[id] {
			next := copyMap(set)
			delete(next, id)
			r.s.snippetTags[snippetID] = next
		}
	}
	return nil
}

func (r *fakeTagRepo) ListBySnippet(_ context.Context, snippetID string) ([]models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tag
	for id := range r.s.snippetTags[snippetID] {
		out = append(out, r.s.tags[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTagRepo) ListSnippetIDs(_ context.Context, tagID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for snippetID, set := range r.s.snippetTags {
		if set[tagID] {
			ids = append(ids, snippetID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeTagRepo) ReplaceSnippetTags(_ context.Context, snippetID string, tagIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		set[id] = true
	}
	r.s.snippetTags[snippetID] = set
	return nil
}

func (r *fakeTagRepo) Attach(_ context.Context, snippetID, tagID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.snippetTags[snippetID]
	if set[tagID] {
		return false, nil
	}
	next := copyMap(set)
	next[tagID] = true
	r.s.snippetTags[snippetID] = next
	return true, nil
}

func (r *fakeTagRepo) Detach(_ context.Context, snippetID, tagID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.snippetTags[snippetID]
	if !set[tagID] {
		return false, nil
	}
	next := copyMap(set)
	delete(next, tagID)
	r.s.snippetTags[snippetID] = next
	return true, nil
}

// --- search index ---

type fakeIndexRepo struct{ s *store }

func (r *fakeIndexRepo) Upsert(_ context.Context, doc *models.SearchDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUpsert != nil {
		return r.s.failUpsert
	}
	r.s.docs[doc.SnippetID] = *doc
	return nil
}

func (r *fakeIndexRepo) Delete(_ context.Context, snippetID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.docs, snippetID)
	return nil
}

func (r *fakeIndexRepo) Get(_ context.Context, snippetID string) (*models.SearchDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doc, ok := r.s.docs[snippetID]
	if !ok {
		return nil, notFound("search document", snippetID)
	}
	return &doc, nil
}

func (r *fakeIndexRepo) DeleteOrphans(_ context.Context, ownerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, doc := range r.s.docs {
		if doc.UserID != ownerID {
			continue
		}
		if sn, ok := r.s.snippets[id]; !ok || sn.AuthorID != ownerID {
			delete(r.s.docs, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeIndexRepo) DeleteUnowned(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, doc := range r.s.docs {
		if _, ok := r.s.users[doc.UserID]; !ok {
			delete(r.s.docs, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeIndexRepo) Count(_ context.Context, ownerID *string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, doc := range r.s.docs {
		if ownerID == nil || doc.UserID == *ownerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeIndexRepo) Search(_ context.Context, q *models.IndexQuery) ([]models.SnippetSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var results []models.SnippetSummary
	for id, doc := range r.s.docs {
		if doc.UserID != q.OwnerID {
			continue
		}
		sn, ok := r.s.snippets[id]
		if !ok {
			continue
		}
		if q.CollectionID != "" && (sn.CollectionID == nil || *sn.CollectionID != q.CollectionID) {
			continue
		}
		if q.Status != "" && sn.Status != q.Status {
			continue
		}
		if q.TagName != "" && !r.hasTagLocked(id, q.TagName) {
			continue
		}
		matched := 0
		if len(q.Terms) > 0 {
			matched = countMatchedTerms(doc, q.Terms)
			if matched == 0 {
				continue
			}
		}
		summary := r.s.summaryLocked(sn)
		summary.MatchedTerms = matched
		results = append(results, summary)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchedTerms != results[j].MatchedTerms {
			return results[i].MatchedTerms > results[j].MatchedTerms
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// countMatchedTerms mirrors the tsquery built from each term: every token is
// present in the normalized document and the last may be a prefix.
func countMatchedTerms(doc models.SearchDocument, terms []models.QueryTerm) int {
	words := make(map[string]bool)
	for _, w := range models.Tokenize(doc.Title + " " + doc.Content + " " + doc.Tags) {
		words[w] = true
	}

	matched := 0
	for _, term := range terms {
		if termMatches(term, words) {
			matched++
		}
	}
	return matched
}

func termMatches(term models.QueryTerm, words map[string]bool) bool {
	last := len(term.Tokens) - 1
	for _, tok := range term.Tokens[:last] {
		if !words[tok] {
			return false
		}
	}
	for w := range words {
		if strings.HasPrefix(w, term.Tokens[last]) {
			return true
		}
	}
	return false
}

func (r *fakeIndexRepo) hasTagLocked(snippetID, name string) bool {
	for tagID := range r.s.snippetTags[snippetID] {
		if r.s.tags[tagID].Name == name {
			return true
		}
	}
	return false
}

// --- wiring ---

var (
	_ vaultRepo.UserRepository        = (*fakeUserRepo)(nil)
	_ vaultRepo.CollectionRepository  = (*fakeCollectionRepo)(nil)
	_ vaultRepo.MemberRepository      = (*fakeMemberRepo)(nil)
	_ vaultRepo.SnippetRepository     = (*fakeSnippetRepo)(nil)
	_ vaultRepo.BlockRepository       = (*fakeBlockRepo)(nil)
	_ vaultRepo.TagRepository         = (*fakeTagRepo)(nil)
	_ vaultRepo.SearchIndexRepository = (*fakeIndexRepo)(nil)
)

type testEnv struct {
	store *store

	userRepo    *fakeUserRepo
	snippetRepo *fakeSnippetRepo

	resolver    vaultSvc.PermissionResolver
	subtree     vaultSvc.SubtreeResolver
	indexer     vaultSvc.IndexService
	users       vaultSvc.UserService
	collections vaultSvc.CollectionService
	members     vaultSvc.MemberService
	snippets    vaultSvc.SnippetService
	tags        vaultSvc.TagService
	search      vaultSvc.SearchService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newStore()
	logger := discardLogger()
	tx := &fakeTxManager{store: st}

	userRepo := &fakeUserRepo{s: st}
	collectionRepo := &fakeCollectionRepo{s: st}
	memberRepo := &fakeMemberRepo{s: st}
	snippetRepo := &fakeSnippetRepo{s: st}
	blockRepo := &fakeBlockRepo{s: st}
	tagRepo := &fakeTagRepo{s: st}
	indexRepo := &fakeIndexRepo{s: st}

	svcs := SetupServices(&vaultRepo.Repositories{
		Users:       userRepo,
		Collections: collectionRepo,
		Members:     memberRepo,
		Snippets:    snippetRepo,
		Blocks:      blockRepo,
		Tags:        tagRepo,
		SearchIndex: indexRepo,
		Tx:          tx,
	}, auth.NewBcryptHasher(bcrypt.MinCost), 2, logger)

	return &testEnv{
		store:       st,
		userRepo:    userRepo,
		snippetRepo: snippetRepo,
		resolver:    svcs.Permissions,
		subtree:     svcs.Subtree,
		indexer:     svcs.Index,
		users:       svcs.Users,
		collections: svcs.Collections,
		members:     svcs.Members,
		snippets:    svcs.Snippets,
		tags:        svcs.Tags,
		search:      svcs.Search,
	}
}

// servicesWith wires a second set of services over the same store after
// swap has replaced some of the repositories
func (e *testEnv) servicesWith(swap func(*vaultRepo.Repositories)) *Services {
	repos := &vaultRepo.Repositories{
		Users:       e.userRepo,
		Collections: &fakeCollectionRepo{s: e.store},
		Members:     &fakeMemberRepo{s: e.store},
		Snippets:    e.snippetRepo,
		Blocks:      &fakeBlockRepo{s: e.store},
		Tags:        &fakeTagRepo{s: e.store},
		SearchIndex: &fakeIndexRepo{s: e.store},
		Tx:          &fakeTxManager{store: e.store},
	}
	swap(repos)
	return SetupServices(repos, auth.NewBcryptHasher(bcrypt.MinCost), 2, discardLogger())
}

// user inserts a user directly and returns its id
func (e *testEnv) user(t *testing.T, name string) string {
	t.Helper()
	now := time.Now()
	u := &models.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(name) + "@example.com",
		Name:      name,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.userRepo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}

func (e *testEnv) collection(t *testing.T, ownerID, name string, parentID *string) string {
	t.Helper()
	view, err := e.collections.CreateCollection(context.Background(), ownerID, &vaultSvc.CreateCollectionRequest{
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("create collection %s: %v", name, err)
	}
	return view.ID
}

func (e *testEnv) tag(t *testing.T, ownerID, name string) string {
	t.Helper()
	tag, err := e.tags.CreateTag(context.Background(), ownerID, &vaultSvc.CreateTagRequest{Name: name})
	if err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
	return tag.ID
}

func (e *testEnv) snippet(t *testing.T, authorID, title string, collectionID *string, code string, tagIDs ...string) *models.SnippetDetail {
	t.Helper()
	lang := "go"
	detail, err := e.snippets.CreateSnippet(context.Background(), authorID, &vaultSvc.CreateSnippetRequest{
		Title:        title,
		CollectionID: collectionID,
		Blocks: []vaultSvc.BlockInput{
			{Type: models.BlockCode, Content: &code, Language: &lang},
		},
		TagIDs: tagIDs,
	})
	if err != nil {
		t.Fatalf("create snippet %s: %v", title, err)
	}
	return detail
}

func strPtr(s string) *string { return &s }
