package saves_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/pkg/adapters/memory"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/saves"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one second per call so timestamps are distinct.
func tickingClock() func() time.Time {
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func config(focus string) domain.Configuration {
	return domain.Configuration{
		WidgetScoringGraph: "# wsg",
		DataGraphShapes:    "# dgs",
		ShapesGraphShapes:  "# sgs",
		FocusNode:          domain.NamedTerm(focus),
	}
}

func newRepo() (*saves.Repository, *memory.Store) {
	store := memory.NewStore()
	return saves.NewRepository(store, saves.WithClock(tickingClock())), store
}

func TestRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	first, err := repo.Create(ctx, "first", config("http://example.org/1"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "save-"))

	second, err := repo.Create(ctx, "  second  ", config("http://example.org/2"))
	require.NoError(t, err)
	assert.Equal(t, "second", second.Name)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "most recent first")
	assert.Equal(t, first.ID, list[1].ID)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.FocusNode.Equal(domain.NamedTerm("http://example.org/1")))
}

func TestRepository_CreateValidates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	_, err := repo.Create(ctx, " ", config("http://example.org/1"))
	assert.ErrorIs(t, err, saves.ErrInvalidSave)

	_, err = repo.Create(ctx, "no focus", domain.Configuration{})
	assert.ErrorIs(t, err, saves.ErrInvalidSave)
}

func TestRepository_MaxSaves(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	var firstID string
	for i := 0; i < saves.MaxSaves+3; i++ {
		s, err := repo.Create(ctx, fmt.Sprintf("save %d", i), config("http://example.org/x"))
		require.NoError(t, err)
		if i == 0 {
			firstID = s.ID
		}
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, saves.MaxSaves)
	assert.Equal(t, fmt.Sprintf("save %d", saves.MaxSaves+2), list[0].Name)

	_, err = repo.Get(ctx, firstID)
	assert.ErrorIs(t, err, saves.ErrSaveNotFound, "oldest saves are dropped")
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	old, err := repo.Create(ctx, "old", config("http://example.org/1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "new", config("http://example.org/2"))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, old.ID, config("http://example.org/changed"))
	require.NoError(t, err)
	assert.Equal(t, "old", updated.Name, "update keeps the name")
	assert.Greater(t, updated.Timestamp, old.Timestamp)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, old.ID, list[0].ID, "updated save moves to the front")
	assert.True(t, list[0].FocusNode.Equal(domain.NamedTerm("http://example.org/changed")))

	_, err = repo.Update(ctx, "save-missing", config("http://example.org/1"))
	assert.ErrorIs(t, err, saves.ErrSaveNotFound)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	s, err := repo.Create(ctx, "doomed", config("http://example.org/1"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, s.ID))
	require.NoError(t, repo.Delete(ctx, s.ID), "deleting twice is fine")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_NameExists(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()

	s, err := repo.Create(ctx, "taken", config("http://example.org/1"))
	require.NoError(t, err)

	exists, err := repo.NameExists(ctx, "taken", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.NameExists(ctx, "taken", s.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the excluded save does not count")

	exists, err = repo.NameExists(ctx, "free", "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_MigratesLegacyDocument(t *testing.T) {
	ctx := context.Background()
	repo, store := newRepo()

	legacy := `{"version":"1.0.0","saves":[
		{"id":"save-a","name":"a","timestamp":1,"focusNode":"42","focusNodeDatatype":"http://www.w3.org/2001/XMLSchema#integer"},
		{"id":"save-b","name":"b","timestamp":2,"focusNode":"x","focusNodeDatatype":""}]}`
	require.NoError(t, store.Put(ctx, saves.DocumentKey, []byte(legacy)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "save-b", list[0].ID)
	assert.True(t, list[1].FocusNode.Equal(domain.TypedLiteral("42", domain.XSDInteger)))

	// The next write persists the current version.
	_, err = repo.Create(ctx, "c", config("http://example.org/c"))
	require.NoError(t, err)
	data, err := store.Get(ctx, saves.DocumentKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":"2.0.0"`)
	assert.NotContains(t, string(data), "focusNodeDatatype")
}

func TestRepository_UnreadableDocumentIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, store := newRepo()
	require.NoError(t, store.Put(ctx, saves.DocumentKey, []byte("garbage")))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
