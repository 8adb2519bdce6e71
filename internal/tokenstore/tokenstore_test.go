package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bremen-jose-oliveira/mylibrary/internal/crypto"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLite(Config{
		DatabasePath:  filepath.Join(t.TempDir(), "test.db"),
		EncryptionKey: key,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewSQLite(t *testing.T) {
	t.Run("fails with invalid encryption key", func(t *testing.T) {
		_, err := NewSQLite(Config{
			DatabasePath:  filepath.Join(t.TempDir(), "test.db"),
			EncryptionKey: "invalid-key",
		})
		assert.Error(t, err)
	})

	t.Run("generates key file if missing", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "")
		t.Setenv(EnvPassphrase, "")
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "new-key")

		store, err := NewSQLite(Config{
			DatabasePath: filepath.Join(dir, "test.db"),
			KeyFilePath:  keyPath,
		})
		require.NoError(t, err)
		defer store.Close()

		_, err = os.Stat(keyPath)
		assert.NoError(t, err)
	})

	t.Run("uses passphrase", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "")
		store, err := NewSQLite(Config{
			DatabasePath: filepath.Join(t.TempDir(), "test.db"),
			Passphrase:   "hunter2",
		})
		require.NoError(t, err)
		defer store.Close()

		ctx := context.Background()
		require.NoError(t, store.StoreToken(ctx, "tok"))
		got, err := store.GetToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok", got)
	})
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	token, err := store.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "fresh store is logged out")

	require.NoError(t, store.StoreToken(ctx, "first"))
	require.NoError(t, store.StoreToken(ctx, "second"))

	token, err = store.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	var count int64
	require.NoError(t, store.db.Model(&entities.StoredSession{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "at most one active token")

	var row entities.StoredSession
	require.NoError(t, store.db.First(&row).Error)
	assert.NotEqual(t, "second", row.Token, "token is encrypted at rest")

	require.NoError(t, store.RemoveToken(ctx))
	token, err = store.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.RemoveToken(ctx), "removing an absent token is a no-op")
}

func TestSQLiteStore_EmptyTokenRemoves(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, "tok"))
	require.NoError(t, store.StoreToken(ctx, ""))

	token, err := store.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("initial")

	token, _ := m.GetToken(ctx)
	assert.Equal(t, "initial", token)

	require.NoError(t, m.StoreToken(ctx, "next"))
	token, _ = m.GetToken(ctx)
	assert.Equal(t, "next", token)

	require.NoError(t, m.RemoveToken(ctx))
	token, _ = m.GetToken(ctx)
	assert.Empty(t, token)
}

func TestKeyFilePath(t *testing.T) {
	assert.Equal(t, "/tmp/custom", KeyFilePath("/tmp/custom"))
	assert.Contains(t, KeyFilePath(""), DefaultKeyFileName)
}
