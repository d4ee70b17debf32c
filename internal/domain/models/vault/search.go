package vault

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Default search configuration values
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	PreviewLength      = 150
)

// SearchDocument is the denormalized, per-snippet text projection used for
// querying. It is derived data and can always be regenerated from the
// content tables.
type SearchDocument struct {
	SnippetID string `json:"snippet_id" db:"snippet_id"`
	UserID    string `json:"user_id" db:"user_id"`
	Title     string `json:"title" db:"title"`
	Content   string `json:"content" db:"content"`
	Tags      string `json:"tags" db:"tags"`
}

// NewSearchDocument projects a snippet, its blocks and its tag names into a
// search document. Only markdown and code blocks contribute, joined in block
// order; tag names are joined in name order.
func NewSearchDocument(s *Snippet, blocks []Block, tagNames []string) SearchDocument {
	var parts []string
	for _, b := range sortedBlocks(blocks) {
		if !b.Type.Textual() {
			continue
		}
		if text := b.Text(); text != "" {
			parts = append(parts, text)
		}
	}

	names := make([]string, len(tagNames))
	copy(names, tagNames)
	sort.Strings(names)

	return SearchDocument{
		SnippetID: s.ID,
		UserID:    s.AuthorID,
		Title:     s.Title,
		Content:   strings.Join(parts, " "),
		Tags:      strings.Join(names, " "),
	}
}

// Tokenize lowercases text and splits it into word tokens (letters and digits),
// the same way the search index normalizes document text.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryTerm is one whitespace-separated term of a search query. A term like
// "foo-bar" carries several tokens, all of which must match.
type QueryTerm struct {
	Raw    string
	Tokens []string
}

// TSQuery renders the term as a tsquery. Every token must be present and the
// last one may be a prefix ("foo & bar:*"). Tokens only contain letters and
// digits so the result is safe to pass to to_tsquery.
func (t QueryTerm) TSQuery() string {
	parts := make([]string, len(t.Tokens))
	copy(parts, t.Tokens)
	parts[len(parts)-1] += ":*"
	return strings.Join(parts, " & ")
}

// ParseQuery splits query text on whitespace. Terms without any word token are
// dropped; duplicate terms collapse so they count once when ranking.
func ParseQuery(text string) []QueryTerm {
	var terms []QueryTerm
	seen := make(map[string]bool)
	for _, raw := range strings.Fields(text) {
		tokens := Tokenize(raw)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, QueryTerm{Raw: raw, Tokens: tokens})
	}
	return terms
}

// SearchRequest configures a search over the caller's own snippets
type SearchRequest struct {
	Query        string `json:"q"`
	CollectionID string `json:"collection,omitempty"`
	TagName      string `json:"tag,omitempty"`
	Status       string `json:"status,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// ApplyDefaults fills the default limit and clamps it to the hard cap
func (r *SearchRequest) ApplyDefaults() {
	r.Query = strings.TrimSpace(r.Query)
	if r.Limit <= 0 {
		r.Limit = DefaultSearchLimit
	}
	if r.Limit > MaxSearchLimit {
		r.Limit = MaxSearchLimit
	}
}

// HasFilters reports whether any post-filter is set
func (r *SearchRequest) HasFilters() bool {
	return r.CollectionID != "" || r.TagName != "" || r.Status != ""
}

// IndexQuery is what the search index repository executes
type IndexQuery struct {
	OwnerID      string
	Terms        []QueryTerm // empty = filtered listing
	CollectionID string
	TagName      string
	Status       string
	Limit        int
}

// SnippetSummary carries enough to render a list row without another lookup
type SnippetSummary struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	CollectionID *string        `json:"collection_id"`
	Collection   *CollectionRef `json:"collection,omitempty"`
	AuthorID     string         `json:"author_id"`
	Tags         []TagRef       `json:"tags"`
	Preview      *string        `json:"preview"`
	Language     *string        `json:"language"`
	PublicID     *string        `json:"public_id,omitempty"`
	IsFavorite   bool           `json:"is_favorite"`
	IsPinned     bool           `json:"is_pinned"`
	MatchedTerms int            `json:"matched_terms,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SearchResults is the search response
type SearchResults struct {
	Query   string           `json:"query"`
	Results []SnippetSummary `json:"results"`
	Total   int              `json:"total"`
}

// Preview returns the first textual block's content, truncated for list rendering
func Preview(blocks []Block) *string {
	for _, b := range sortedBlocks(blocks) {
		if !b.Type.Textual() || b.Text() == "" {
			continue
		}
		text := []rune(b.Text())
		if len(text) > PreviewLength {
			text = text[:PreviewLength]
		}
		preview := string(text)
		return &preview
	}
	return nil
}

// FirstCodeLanguage returns the language of the first code block, if any
func FirstCodeLanguage(blocks []Block) *string {
	for _, b := range sortedBlocks(blocks) {
		if b.Type == BlockCode {
			return b.Language
		}
	}
	return nil
}

func sortedBlocks(blocks []Block) []Block {
	ordered := make([]Block, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	return ordered
}
