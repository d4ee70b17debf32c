package vault

import (
	vaultRepo "snipvault/internal/domain/repositories/vault"
	"snipvault/internal/repository/postgres"
)

// NewRepositories creates every Postgres-backed vault repository sharing one pool
func NewRepositories(config *postgres.RepositoryConfig) *vaultRepo.Repositories {
	return &vaultRepo.Repositories{
		Users:       NewUserRepository(config),
		Collections: NewCollectionRepository(config),
		Members:     NewMemberRepository(config),
		Snippets:    NewSnippetRepository(config),
		Blocks:      NewBlockRepository(config),
		Tags:        NewTagRepository(config),
		SearchIndex: NewSearchIndexRepository(config),
		Tx:          postgres.NewTransactionManager(config.Pool, config.Logger),
	}
}
