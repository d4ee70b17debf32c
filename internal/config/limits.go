package config

const (
	// MaxCollectionNameLength is the maximum length for collection names.
	// Limited to 255 to keep names short enough for breadcrumbs and paths.
	MaxCollectionNameLength = 255

	// MaxSnippetTitleLength is the maximum length for snippet titles.
	MaxSnippetTitleLength = 255

	// MaxTagNameLength is the maximum length for tag names.
	// Tags render as chips, so they are kept much shorter than titles.
	MaxTagNameLength = 64

	// MaxUserNameLength is the maximum length for display names.
	MaxUserNameLength = 255

	// MaxBlocksPerSnippet caps the number of blocks in one snippet.
	MaxBlocksPerSnippet = 200

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8

	// MinAPIKeyLength is the shortest string accepted as an API key.
	// Generated keys are 64 hex characters.
	MinAPIKeyLength = 32

	// DefaultPageSize and MaxPageSize bound snippet listings.
	DefaultPageSize = 50
	MaxPageSize     = 200
)
