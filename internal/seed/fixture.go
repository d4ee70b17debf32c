// Package seed loads YAML fixtures into the vault through the regular services,
// so every seeded snippet is indexed on the normal write path.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture describes users, their tags, nested collections with members, and snippets
type Fixture struct {
	Users       []UserFixture       `yaml:"users"`
	Tags        []TagFixture        `yaml:"tags"`
	Collections []CollectionFixture `yaml:"collections"`
	Snippets    []SnippetFixture    `yaml:"snippets"`
}

// UserFixture is a user account. Existing emails are reused as-is.
type UserFixture struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

// TagFixture is a tag owned by a user
type TagFixture struct {
	Owner string  `yaml:"owner"`
	Name  string  `yaml:"name"`
	Color *string `yaml:"color"`
}

// CollectionFixture is a collection tree node. Children inherit the owner.
type CollectionFixture struct {
	Owner       string              `yaml:"owner"`
	Name        string              `yaml:"name"`
	Description *string             `yaml:"description"`
	Icon        *string             `yaml:"icon"`
	Members     []MemberFixture     `yaml:"members"`
	Children    []CollectionFixture `yaml:"children"`
}

// MemberFixture grants a user read or write on a collection
type MemberFixture struct {
	Email      string `yaml:"email"`
	Permission string `yaml:"permission"`
}

// SnippetFixture is a snippet. Collection is a slash-separated path among the
// collections owned by CollectionOwner, which defaults to the author.
type SnippetFixture struct {
	Author          string         `yaml:"author"`
	Title           string         `yaml:"title"`
	Description     *string        `yaml:"description"`
	Status          string         `yaml:"status"`
	Collection      string         `yaml:"collection"`
	CollectionOwner string         `yaml:"collection_owner"`
	Tags            []string       `yaml:"tags"`
	Blocks          []BlockFixture `yaml:"blocks"`
}

// BlockFixture is one content block
type BlockFixture struct {
	Type     string  `yaml:"type"`
	Content  *string `yaml:"content"`
	Language *string `yaml:"language"`
	FilePath *string `yaml:"file_path"`
	FileName *string `yaml:"file_name"`
}

// Parse decodes a fixture, rejecting unknown keys, and checks its references
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Default returns the fixture bundled with the binary
func Default() (*Fixture, error) {
	return Parse(bytes.NewReader(defaultFixture))
}

// Validate checks that every referenced user, tag and collection path is declared
func (fx *Fixture) Validate() error {
	users := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		email := normalizeEmail(u.Email)
		if email == "" {
			return errors.New("user without email")
		}
		if users[email] {
			return fmt.Errorf("user %s declared twice", email)
		}
		users[email] = true
	}

	requireUser := func(email, what string) error {
		if !users[normalizeEmail(email)] {
			return fmt.Errorf("%s references undeclared user %q", what, email)
		}
		return nil
	}

	tags := make(map[string]bool)
	for _, t := range fx.Tags {
		if err := requireUser(t.Owner, "tag "+t.Name); err != nil {
			return err
		}
		tags[tagKey(t.Owner, t.Name)] = true
	}

	paths := make(map[string]bool)
	var walk func(owner, prefix string, nodes []CollectionFixture) error
	walk = func(owner, prefix string, nodes []CollectionFixture) error {
		for _, c := range nodes {
			path := joinPath(prefix, c.Name)
			paths[pathKey(owner, path)] = true
			for _, m := range c.Members {
				if err := requireUser(m.Email, "collection "+path); err != nil {
					return err
				}
			}
			if err := walk(owner, path, c.Children); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range fx.Collections {
		if err := requireUser(c.Owner, "collection "+c.Name); err != nil {
			return err
		}
		if err := walk(c.Owner, "", []CollectionFixture{c}); err != nil {
			return err
		}
	}

	for _, s := range fx.Snippets {
		if err := requireUser(s.Author, "snippet "+s.Title); err != nil {
			return err
		}
		for _, name := range s.Tags {
			if !tags[tagKey(s.Author, name)] {
				return fmt.Errorf("snippet %q uses undeclared tag %q", s.Title, name)
			}
		}
		if s.Collection != "" && !paths[pathKey(s.collectionOwner(), s.Collection)] {
			return fmt.Errorf("snippet %q references unknown collection %q", s.Title, s.Collection)
		}
	}
	return nil
}

func (s SnippetFixture) collectionOwner() string {
	if s.CollectionOwner != "" {
		return s.CollectionOwner
	}
	return s.Author
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tagKey(owner, name string) string {
	return normalizeEmail(owner) + "#" + strings.ToLower(strings.TrimSpace(name))
}

func pathKey(owner, path string) string {
	return normalizeEmail(owner) + ":" + path
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
