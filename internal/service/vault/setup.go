package vault

import (
	"log/slog"

	"snipvault/internal/auth"
	vaultRepo "snipvault/internal/domain/repositories/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	svcauth "snipvault/internal/service/auth"
)

// Services holds every vault service, wired over one set of repositories
type Services struct {
	Permissions vaultSvc.PermissionResolver
	Subtree     vaultSvc.SubtreeResolver
	Index       vaultSvc.IndexService
	Search      vaultSvc.SearchService
	Users       vaultSvc.UserService
	Collections vaultSvc.CollectionService
	Members     vaultSvc.MemberService
	Snippets    vaultSvc.SnippetService
	Tags        vaultSvc.TagService
}

// SetupServices initializes all vault services with proper dependency injection
func SetupServices(
	repos *vaultRepo.Repositories,
	hasher auth.PasswordHasher,
	rebuildConcurrency int,
	logger *slog.Logger,
) *Services {
	resolver := svcauth.NewRankResolver(repos.Collections, repos.Members, repos.Snippets)
	subtree := NewSubtreeResolver(repos.Collections, logger)
	indexer := NewIndexService(
		repos.Users,
		repos.Snippets,
		repos.Blocks,
		repos.Tags,
		repos.SearchIndex,
		repos.Tx,
		rebuildConcurrency,
		logger,
	)

	return &Services{
		Permissions: resolver,
		Subtree:     subtree,
		Index:       indexer,
		Search:      NewSearchService(repos.SearchIndex, logger),
		Users:       NewUserService(repos.Users, hasher, logger),
		Collections: NewCollectionService(repos.Collections, subtree, resolver, repos.Tx, logger),
		Members:     NewMemberService(repos.Members, repos.Collections, repos.Users, resolver, repos.Tx, logger),
		Snippets: NewSnippetService(
			repos.Snippets,
			repos.Blocks,
			repos.Tags,
			repos.Collections,
			repos.Users,
			resolver,
			subtree,
			indexer,
			repos.Tx,
			logger,
		),
		Tags: NewTagService(repos.Tags, indexer, repos.Tx, logger),
	}
}
