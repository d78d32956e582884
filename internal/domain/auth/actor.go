// Package auth holds caller identities: storefront API keys and the admin
// Actor that performs back-office mutations.
package auth

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNoActor is returned when an admin mutation runs without an identity.
var ErrNoActor = errors.New("actor required")

// Actor is the verified admin performing a mutation. It is passed explicitly
// to every admin operation.
type Actor struct {
	ID   string
	Name string
}

// Validate ensures the actor carries an id.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrNoActor
	}
	return nil
}

type actorKey struct{}

type apiKeyKey struct{}

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// WithAPIKey returns a context carrying the authenticated key.
func WithAPIKey(ctx context.Context, k *APIKeyInfo) context.Context {
	return context.WithValue(ctx, apiKeyKey{}, k)
}

// APIKeyFrom returns the key stored by WithAPIKey.
func APIKeyFrom(ctx context.Context) (*APIKeyInfo, bool) {
	k, ok := ctx.Value(apiKeyKey{}).(*APIKeyInfo)
	return k, ok && k != nil
}
