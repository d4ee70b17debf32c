package vault

import (
	"sort"
	"strings"
)

type Tag struct {
	ID     string  `json:"id" db:"id"`
	Name   string  `json:"name" db:"name"`
	Color  *string `json:"color,omitempty" db:"color"`
	UserID string  `json:"user_id" db:"user_id"`
}

// TagRef is the short form embedded in snippet views
type TagRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

// Ref returns the short form of the tag
func (t *Tag) Ref() TagRef {
	return TagRef{ID: t.ID, Name: t.Name, Color: t.Color}
}

// SameTagName compares tag names the way duplicate checks do (case-insensitive)
func SameTagName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SortTagRefs orders tags by name so projections are deterministic
func SortTagRefs(tags []TagRef) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Name == tags[j].Name {
			return tags[i].ID < tags[j].ID
		}
		return tags[i].Name < tags[j].Name
	})
}
