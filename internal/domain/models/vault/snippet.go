package vault

import "time"

// Snippet status values
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// BlockType identifies the kind of content a block carries
type BlockType string

const (
	BlockMarkdown BlockType = "markdown"
	BlockCode     BlockType = "code"
	BlockImage    BlockType = "image"
	BlockFile     BlockType = "file"
)

// Valid reports whether t is a known block type
func (t BlockType) Valid() bool {
	switch t {
	case BlockMarkdown, BlockCode, BlockImage, BlockFile:
		return true
	}
	return false
}

// Textual reports whether blocks of this type contribute text to search
func (t BlockType) Textual() bool {
	return t == BlockMarkdown || t == BlockCode
}

type Snippet struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description,omitempty" db:"description"`
	CollectionID *string   `json:"collection_id" db:"collection_id"` // NULL = unfiled
	AuthorID     string    `json:"author_id" db:"author_id"`
	Status       string    `json:"status" db:"status"`
	IsFavorite   bool      `json:"is_favorite" db:"is_favorite"`
	IsPinned     bool      `json:"is_pinned" db:"is_pinned"`
	PublicID     *string   `json:"public_id,omitempty" db:"public_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Block struct {
	ID        string    `json:"id" db:"id"`
	SnippetID string    `json:"snippet_id" db:"snippet_id"`
	Order     int       `json:"order" db:"order"`
	Type      BlockType `json:"type" db:"type"`
	Content   *string   `json:"content,omitempty" db:"content"`
	Language  *string   `json:"language,omitempty" db:"language"`
	FilePath  *string   `json:"file_path,omitempty" db:"file_path"`
	FileName  *string   `json:"file_name,omitempty" db:"file_name"`
	FileSize  *int64    `json:"file_size,omitempty" db:"file_size"`
}

// Text returns the block content or an empty string
func (b *Block) Text() string {
	if b.Content == nil {
		return ""
	}
	return *b.Content
}

// SnippetDetail is a snippet with everything needed to render it
type SnippetDetail struct {
	Snippet
	Blocks     []Block        `json:"blocks"`
	Tags       []TagRef       `json:"tags"`
	Collection *CollectionRef `json:"collection,omitempty"`
	Rank       Rank           `json:"rank"`
}

// PublicSnippet is the unauthenticated view served under a public id
type PublicSnippet struct {
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	PublicID    string    `json:"public_id"`
	AuthorName  string    `json:"author_name"`
	Blocks      []Block   `json:"blocks"`
	Tags        []TagRef  `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SnippetFilter narrows snippet listings
type SnippetFilter struct {
	AuthorID      string   // Set for "my snippets"
	CollectionIDs []string // Set for collection and subtree listings
	Status        string
	Limit         int
	Offset        int
}

// SnippetPage is one page of snippet summaries
type SnippetPage struct {
	Snippets []SnippetSummary `json:"snippets"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"has_more"`
}
