package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/scorebridge/pkg/adapters/file"
	"github.com/aretw0/scorebridge/pkg/persistence"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DocumentStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunDocumentStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_SessionContract(t *testing.T) {
	ports.RunSessionStoreContract(t, persistence.NewSessionStore(file.New(t.TempDir()), "session:"))
}

func TestFileStore_KeysStayInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	key := "../escape/shui:playground"
	require.NoError(t, store.Put(ctx, key, []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "not-created"))
	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
