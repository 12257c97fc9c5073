package persistence_test

import (
	"context"
	"testing"

	"github.com/aretw0/scorebridge/pkg/adapters/memory"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/persistence"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, persistence.NewSessionStore(memory.NewStore(), ""))
}

func TestSessionStore_ListIgnoresForeignDocuments(t *testing.T) {
	docs := memory.NewStore()
	store := persistence.NewSessionStore(docs, "")
	ctx := context.Background()

	require.NoError(t, docs.Put(ctx, "shui-playground-saves", []byte(`{}`)))
	require.NoError(t, store.Save(ctx, domain.NewSession("abc")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)
}

func TestSessionStore_RejectsEmptyID(t *testing.T) {
	store := persistence.NewSessionStore(memory.NewStore(), "")
	assert.Error(t, store.Save(context.Background(), &domain.Session{}))
}
