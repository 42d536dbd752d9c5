package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	store, err := NewFileStore(path, "http://localhost:8080")
	require.NoError(t, err)

	_, err = store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyAccessToken, "T1"))
	require.NoError(t, store.Set(ctx, KeyRefreshToken, "R1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second store on the same file sees the values, as after a restart
	reopened, err := NewFileStore(path, "http://localhost:8080/")
	require.NoError(t, err)
	v, err := reopened.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "R1", v)

	require.NoError(t, reopened.MultiRemove(ctx, SessionKeys...))
	_, err = store.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_KeepsOtherServers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	a, _ := NewFileStore(path, "https://a.example.com")
	b, _ := NewFileStore(path, "https://b.example.com")

	require.NoError(t, a.Set(ctx, KeyAccessToken, "A"))
	require.NoError(t, b.Set(ctx, KeyAccessToken, "B"))
	require.NoError(t, a.MultiRemove(ctx, SessionKeys...))

	v, err := b.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "B", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewFileStore(path, "https://a.example.com")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), KeyAccessToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	s, err := Open("", "https://a.example.com", "")
	require.NoError(t, err)
	assert.IsType(t, &KeyringStore{}, s)

	s, err = Open(BackendFile, "https://a.example.com", filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("vault", "https://a.example.com", "")
	assert.Error(t, err)
}
