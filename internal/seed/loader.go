package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
)

// Services are the write paths a fixture is loaded through
type Services struct {
	Users       vaultSvc.UserService
	Tags        vaultSvc.TagService
	Collections vaultSvc.CollectionService
	Members     vaultSvc.MemberService
	Snippets    vaultSvc.SnippetService
}

// Result counts what a load created
type Result struct {
	Users       int
	Tags        int
	Collections int
	Members     int
	Snippets    int
	// APIKeys holds the key of every user created by this load, by email
	APIKeys map[string]string
}

// Loader applies fixtures
type Loader struct {
	services Services
	logger   *slog.Logger
}

// NewLoader creates a fixture loader
func NewLoader(services Services, logger *slog.Logger) *Loader {
	return &Loader{services: services, logger: logger}
}

// loadState maps fixture names to the ids created for them
type loadState struct {
	userIDs       map[string]string // email -> id
	tagIDs        map[string]string // tagKey -> id
	collectionIDs map[string]string // pathKey -> id
	result        *Result
}

// Load creates everything in fx. Existing users and tags are reused; everything
// else is created fresh, so loading twice duplicates collections and snippets.
func (l *Loader) Load(ctx context.Context, fx *Fixture) (*Result, error) {
	st := &loadState{
		userIDs:       make(map[string]string),
		tagIDs:        make(map[string]string),
		collectionIDs: make(map[string]string),
		result:        &Result{APIKeys: make(map[string]string)},
	}

	for _, u := range fx.Users {
		if err := l.loadUser(ctx, st, u); err != nil {
			return st.result, err
		}
	}
	for _, t := range fx.Tags {
		if err := l.loadTag(ctx, st, t); err != nil {
			return st.result, err
		}
	}
	for _, c := range fx.Collections {
		if err := l.loadCollection(ctx, st, c.Owner, "", nil, c); err != nil {
			return st.result, err
		}
	}
	for _, s := range fx.Snippets {
		if err := l.loadSnippet(ctx, st, s); err != nil {
			return st.result, err
		}
	}

	l.logger.Info("fixture loaded",
		"users", st.result.Users,
		"tags", st.result.Tags,
		"collections", st.result.Collections,
		"members", st.result.Members,
		"snippets", st.result.Snippets,
	)
	return st.result, nil
}

func (l *Loader) loadUser(ctx context.Context, st *loadState, u UserFixture) error {
	email := normalizeEmail(u.Email)

	existing, err := l.services.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		st.userIDs[email] = existing.ID
		l.logger.Debug("user exists, reusing", "email", email)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("look up user %s: %w", email, err)
	}

	user, apiKey, err := l.services.Users.CreateUser(ctx, &vaultSvc.CreateUserRequest{
		Email:    email,
		Name:     u.Name,
		Password: u.Password,
		Admin:    u.Admin,
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", email, err)
	}

	st.userIDs[email] = user.ID
	st.result.Users++
	st.result.APIKeys[email] = apiKey
	return nil
}

func (l *Loader) loadTag(ctx context.Context, st *loadState, t TagFixture) error {
	ownerID := st.userIDs[normalizeEmail(t.Owner)]

	tag, err := l.services.Tags.CreateTag(ctx, ownerID, &vaultSvc.CreateTagRequest{Name: t.Name, Color: t.Color})
	var conflictErr *domain.ConflictError
	switch {
	case err == nil:
		st.result.Tags++
		st.tagIDs[tagKey(t.Owner, t.Name)] = tag.ID
	case errors.As(err, &conflictErr) && conflictErr.ResourceID != "":
		st.tagIDs[tagKey(t.Owner, t.Name)] = conflictErr.ResourceID
	default:
		return fmt.Errorf("create tag %s: %w", t.Name, err)
	}
	return nil
}

func (l *Loader) loadCollection(ctx context.Context, st *loadState, owner, prefix string, parentID *string, c CollectionFixture) error {
	ownerID := st.userIDs[normalizeEmail(owner)]
	path := joinPath(prefix, c.Name)

	view, err := l.services.Collections.CreateCollection(ctx, ownerID, &vaultSvc.CreateCollectionRequest{
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		ParentID:    parentID,
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", path, err)
	}
	st.collectionIDs[pathKey(owner, path)] = view.ID
	st.result.Collections++

	for _, m := range c.Members {
		_, err := l.services.Members.AddMember(ctx, ownerID, view.ID, &vaultSvc.AddMemberRequest{
			Email:      normalizeEmail(m.Email),
			Permission: m.Permission,
		})
		if err != nil {
			return fmt.Errorf("add %s to %s: %w", m.Email, path, err)
		}
		st.result.Members++
	}

	for _, child := range c.Children {
		if err := l.loadCollection(ctx, st, owner, path, &view.ID, child); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadSnippet(ctx context.Context, st *loadState, s SnippetFixture) error {
	authorID := st.userIDs[normalizeEmail(s.Author)]

	req := &vaultSvc.CreateSnippetRequest{
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		Blocks:      make([]vaultSvc.BlockInput, 0, len(s.Blocks)),
	}
	if s.Collection != "" {
		id := st.collectionIDs[pathKey(s.collectionOwner(), s.Collection)]
		req.CollectionID = &id
	}
	for _, name := range s.Tags {
		req.TagIDs = append(req.TagIDs, st.tagIDs[tagKey(s.Author, name)])
	}
	for _, b := range s.Blocks {
		req.Blocks = append(req.Blocks, vaultSvc.BlockInput{
			Type:     models.BlockType(b.Type),
			Content:  b.Content,
			Language: b.Language,
			FilePath: b.FilePath,
			FileName: b.FileName,
		})
	}

	snippet, err := l.services.Snippets.CreateSnippet(ctx, authorID, req)
	if err != nil {
		return fmt.Errorf("create snippet %q: %w", s.Title, err)
	}

	l.logger.Debug("snippet seeded", "id", snippet.ID, "title", s.Title)
	st.result.Snippets++
	return nil
}
