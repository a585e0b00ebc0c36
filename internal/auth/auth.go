package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"
)

// RoleQueryReader may ask questions and browse the warehouse schema.
const RoleQueryReader = "query_reader"

type Identity struct {
	ClientID string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator holds keys from configuration. Only key digests are
// kept and every lookup compares against all of them.
type StaticAPIKeyValidator struct {
	keys []staticKey
}

type staticKey struct {
	digest   [sha256.Size]byte
	identity Identity
}

// NewStaticAPIKeyValidator parses "key:client:role|role,..." entries.
func NewStaticAPIKeyValidator(entries string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{}
	for _, entry := range strings.Split(entries, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		identity, key, err := parseStaticEntry(entry)
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256([]byte(key))
		if validator.lookup(digest) != nil {
			return nil, fmt.Errorf("invalid static key entry for client %q: duplicate key", identity.ClientID)
		}
		validator.keys = append(validator.keys, staticKey{digest: digest, identity: identity})
	}
	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	match := v.lookup(sha256.Sum256([]byte(apiKey)))
	if match == nil {
		return Identity{}, false
	}
	return match.identity, true
}

func (v *StaticAPIKeyValidator) lookup(digest [sha256.Size]byte) *staticKey {
	var match *staticKey
	for i := range v.keys {
		if subtle.ConstantTimeCompare(v.keys[i].digest[:], digest[:]) == 1 {
			match = &v.keys[i]
		}
	}
	return match
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}

func parseStaticEntry(entry string) (Identity, string, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 {
		return Identity{}, "", fmt.Errorf("invalid static key entry %q: expected key:client:role|role", entry)
	}
	key := strings.TrimSpace(parts[0])
	client := strings.TrimSpace(parts[1])
	if key == "" || client == "" {
		return Identity{}, "", fmt.Errorf("invalid static key entry %q: empty key/client", entry)
	}

	roles := make([]string, 0)
	for _, role := range strings.Split(parts[2], "|") {
		if role = strings.TrimSpace(role); role != "" && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return Identity{}, "", fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
	}
	slices.Sort(roles)
	return Identity{ClientID: client, Roles: roles}, key, nil
}
