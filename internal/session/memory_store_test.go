package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	conv := &Conversation{ChatID: 42, Kind: KindOrderCreate, Step: "customer_name"}
	conv.Set("customer_name", "PT Maju Jaya")
	require.NoError(t, store.Put(ctx, conv))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, KindOrderCreate, got.Kind)
	assert.Equal(t, "customer_name", got.Step)
	assert.Equal(t, "PT Maju Jaya", got.Get("customer_name"))
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, 42))
	_, err = store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetCopiesFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv := &Conversation{ChatID: 1, Kind: KindRegistration, Step: "role_selection"}
	conv.Set("role", "HD")
	require.NoError(t, store.Put(ctx, conv))

	first, err := store.Get(ctx, 1)
	require.NoError(t, err)
	first.Set("role", "TEKNISI")

	second, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "HD", second.Get("role"), "mutating a returned copy must not leak into the store")
}

func TestConversationFieldHelpers(t *testing.T) {
	var conv Conversation
	assert.Empty(t, conv.Get("missing"))
	conv.Set("site", "KBY")
	assert.Equal(t, "KBY", conv.Get("site"))
}
