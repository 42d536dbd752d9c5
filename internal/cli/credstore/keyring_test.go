package credstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore_RoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := NewKeyringStore("https://api.example.com/some/path")

	_, err := store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyAccessToken, "T1"))
	require.NoError(t, store.Set(ctx, KeyUserInfo, `{"id":"u1","role":"driver"}`))

	got, err := store.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "T1", got)

	require.NoError(t, store.MultiRemove(ctx, SessionKeys...))

	for _, key := range SessionKeys {
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound, key)
	}
}

func TestKeyringStore_NamespacedPerServer(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	a := NewKeyringStore("https://a.example.com")
	b := NewKeyringStore("https://b.example.com")

	require.NoError(t, a.Set(ctx, KeyAccessToken, "A"))

	_, err := b.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	// trailing slash and path resolve to the same namespace
	same := NewKeyringStore("https://a.example.com/")
	v, err := same.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "A", v)
}

func TestKeyringStore_BackendError(t *testing.T) {
	boom := errors.New("keychain locked")
	keyring.MockInitWithError(boom)
	t.Cleanup(keyring.MockInit)

	store := NewKeyringStore("https://api.example.com")
	_, err := store.Get(context.Background(), KeyAccessToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, store.MultiRemove(context.Background(), SessionKeys...), boom)
}

func TestLookup(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := NewKeyringStore("https://api.example.com")

	v, err := Lookup(ctx, store, KeyRefreshToken)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.Set(ctx, KeyRefreshToken, "R1"))
	v, err = Lookup(ctx, store, KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "R1", v)
}

func TestNormalizeServer(t *testing.T) {
	tests := map[string]string{
		"https://api.example.com":   "https://api.example.com",
		"https://api.example.com/":  "https://api.example.com",
		"http://localhost:8080/api": "http://localhost:8080",
		"not a url":                 "not a url",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeServer(in), in)
	}
}
