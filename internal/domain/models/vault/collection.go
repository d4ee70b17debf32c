package vault

import (
	"strings"
	"time"
)

type Collection struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Icon        *string   `json:"icon,omitempty" db:"icon"`
	ParentID    *string   `json:"parent_id" db:"parent_id"` // NULL = top level
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	IsShared    bool      `json:"is_shared" db:"is_shared"`
	Path        string    `json:"path,omitempty"` // Computed display path, not stored in DB
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CollectionRef is the short form embedded in snippet summaries and breadcrumbs
type CollectionRef struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

// Ref returns the short form of the collection
func (c *Collection) Ref() CollectionRef {
	return CollectionRef{ID: c.ID, Name: c.Name, Icon: c.Icon}
}

// CollectionView is a collection as seen by a particular user
type CollectionView struct {
	Collection
	Rank       Rank            `json:"rank"`
	Breadcrumb []CollectionRef `json:"breadcrumb,omitempty"`
}

// BuildPath joins breadcrumb names into a display path ("Work/Go/Retry")
func BuildPath(breadcrumb []CollectionRef) string {
	names := make([]string, len(breadcrumb))
	for i, ref := range breadcrumb {
		names[i] = ref.Name
	}
	return strings.Join(names, "/")
}

// Membership permission values
const (
	MemberRead  = "read"
	MemberWrite = "write"
)

// CollectionMember grants one user read or write on exactly one collection.
type CollectionMember struct {
	CollectionID string    `json:"collection_id" db:"collection_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Permission   string    `json:"permission" db:"permission"`
	InvitedAt    time.Time `json:"invited_at" db:"invited_at"`
	// Populated on listing
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// SharedCollection is a collection reached through a membership row
type SharedCollection struct {
	Collection
	Permission string
}

// ChildLink is one parent/child edge of the collection tree
type ChildLink struct {
	ID       string
	ParentID string
}
