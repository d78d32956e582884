package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKey(t *testing.T) {
	a := HashKey("secret", "pepper")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashKey("secret", "pepper"))
	assert.NotEqual(t, a, HashKey("secret", "other"))
	assert.NotEqual(t, a, HashKey("Secret", "pepper"))
}

func TestAPIKeyInfo_HasScope(t *testing.T) {
	k := &APIKeyInfo{Scopes: []string{ScopePlaceOrder}}
	assert.True(t, k.HasScope(ScopePlaceOrder))
	assert.False(t, k.HasScope(ScopeReadOrder))
}

func TestActor_Validate(t *testing.T) {
	require.NoError(t, Actor{ID: "u1"}.Validate())
	require.ErrorIs(t, Actor{ID: "  ", Name: "Ana"}.Validate(), ErrNoActor)
}

func TestContext(t *testing.T) {
	ctx := context.Background()

	_, ok := ActorFrom(ctx)
	assert.False(t, ok)
	_, ok = APIKeyFrom(ctx)
	assert.False(t, ok)

	ctx = WithActor(ctx, Actor{ID: "u1", Name: "Ana"})
	ctx = WithAPIKey(ctx, &APIKeyInfo{ID: "k1"})

	a, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "Ana", a.Name)

	k, ok := APIKeyFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "k1", k.ID)
}
