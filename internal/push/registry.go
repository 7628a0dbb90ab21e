package push

import (
	"fmt"
	"strings"

	"chatrelay/internal/store"
)

const tokensStore = "tokens"

// Registry holds the opaque push-registration tokens clients subscribe with.
// Inserts are idempotent; the set is append-only from the client's side.
type Registry struct {
	store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

func (r *Registry) Add(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	return r.store.Do(tokensStore, func() error {
		var tokens []string
		r.store.Load(tokensStore, &tokens)
		for _, t := range tokens {
			if t == token {
				return nil
			}
		}
		tokens = append(tokens, token)
		return r.store.Save(tokensStore, tokens)
	})
}

func (r *Registry) All() []string {
	var tokens []string
	r.store.Load(tokensStore, &tokens)
	return tokens
}
