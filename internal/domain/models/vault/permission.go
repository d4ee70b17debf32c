package vault

import (
	"encoding/json"
	"fmt"
)

// Rank is the access level a user holds on a collection or snippet.
// Ranks are ordered: owner > write > read > none.
type Rank int

const (
	RankNone Rank = iota
	RankRead
	RankWrite
	RankOwner
)

// CanRead is true for any rank other than none
func (r Rank) CanRead() bool { return r >= RankRead }

// CanWrite is true for write and owner
func (r Rank) CanWrite() bool { return r >= RankWrite }

// IsOwner is true only for owner
func (r Rank) IsOwner() bool { return r == RankOwner }

func (r Rank) String() string {
	switch r {
	case RankOwner:
		return "owner"
	case RankWrite:
		return "write"
	case RankRead:
		return "read"
	default:
		return "none"
	}
}

// MarshalJSON renders the rank by name
func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a rank name
func (r *Rank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRank(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRank parses a rank name
func ParseRank(s string) (Rank, error) {
	switch s {
	case "owner":
		return RankOwner, nil
	case "write":
		return RankWrite, nil
	case "read":
		return RankRead, nil
	case "none", "":
		return RankNone, nil
	}
	return RankNone, fmt.Errorf("unknown rank %q", s)
}

// RankFromMembership maps a stored membership permission to a rank.
// Unknown values grant nothing.
func RankFromMembership(permission string) Rank {
	switch permission {
	case MemberWrite:
		return RankWrite
	case MemberRead:
		return RankRead
	}
	return RankNone
}

// Capability is a gate checked against a rank
type Capability int

const (
	CapRead Capability = iota
	CapWrite
	CapOwner
)

// Allows reports whether rank r satisfies the capability
func (c Capability) Allows(r Rank) bool {
	switch c {
	case CapOwner:
		return r.IsOwner()
	case CapWrite:
		return r.CanWrite()
	default:
		return r.CanRead()
	}
}

func (c Capability) String() string {
	switch c {
	case CapOwner:
		return "owner"
	case CapWrite:
		return "write"
	default:
		return "read"
	}
}

// ResolveCollectionRank computes a user's rank on a collection from its owner
// and the user's membership row (nil when absent). Parent collections are never
// consulted.
func ResolveCollectionRank(c *Collection, membership *CollectionMember, userID string) Rank {
	if c == nil || userID == "" {
		return RankNone
	}
	if c.OwnerID == userID {
		return RankOwner
	}
	if membership == nil || membership.CollectionID != c.ID || membership.UserID != userID {
		return RankNone
	}
	return RankFromMembership(membership.Permission)
}

// ResolveSnippetRank computes a user's rank on a snippet. Authorship wins over
// membership; unfiled snippets are private to their author. collectionRank is
// only called for filed snippets the user did not write.
func ResolveSnippetRank(s *Snippet, userID string, collectionRank func(collectionID string) (Rank, error)) (Rank, error) {
	if s == nil || userID == "" {
		return RankNone, nil
	}
	if s.AuthorID == userID {
		return RankOwner, nil
	}
	if s.CollectionID == nil {
		return RankNone, nil
	}
	return collectionRank(*s.CollectionID)
}
