package vault

import "snipvault/internal/domain/repositories"

// Repositories bundles every vault store behind one transaction manager
type Repositories struct {
	Users       UserRepository
	Collections CollectionRepository
	Members     MemberRepository
	Snippets    SnippetRepository
	Blocks      BlockRepository
	Tags        TagRepository
	SearchIndex SearchIndexRepository
	Tx          repositories.TransactionManager
}
