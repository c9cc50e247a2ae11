// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentity is returned when user input cannot be parsed into an
// owner/name pair.
var ErrInvalidIdentity = errors.New("invalid repository identity")

// Identity identifies a repository by its owner and name.
type Identity struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseIdentity parses a user-supplied repository reference. It accepts full
// GitHub URLs ("https://github.com/owner/repo"), host-prefixed paths
// ("github.com/owner/repo"), and plain "owner/repo" strings. Trailing slashes
// and a ".git" suffix are tolerated.
func ParseIdentity(input string) (Identity, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Identity{}, fmt.Errorf("%w: %q is not an owner/name pair", ErrInvalidIdentity, input)
	}
	owner := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return Identity{}, fmt.Errorf("%w: %q has an empty owner or name", ErrInvalidIdentity, input)
	}
	return Identity{Owner: owner, Name: name}, nil
}

// String returns the canonical "owner/name" form.
func (id Identity) String() string {
	return id.Owner + "/" + id.Name
}

// Normalized returns the identity lowercased. GitHub owner and repository
// names are case-insensitive, so normalized identities are used for cache
// keys and comparisons.
func (id Identity) Normalized() Identity {
	return Identity{Owner: strings.ToLower(id.Owner), Name: strings.ToLower(id.Name)}
}
