package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentStoreContract verifies that a DocumentStore implementation
// honours the interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	key := "contract-doc-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		payload := []byte(`{"hello":"world"}`)
		require.NoError(t, store.Put(ctx, key, payload))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, string(payload), string(got))
	})

	t.Run("Get returns a private copy", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, []byte(`"a"`)))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		for i := range got {
			got[i] = 'x'
		}

		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `"a"`, string(again))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, []byte(`1`)))
		require.NoError(t, store.Put(ctx, key, []byte(`2`)))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `2`, string(got))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, []byte(`{}`)))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Put(ctx, k1, []byte(`{}`)))
		require.NoError(t, store.Put(ctx, k2, []byte(`{}`)))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}

// RunSessionStoreContract verifies that a SessionStore implementation
// honours the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(sessionID)
		req := domain.ScoringRequest{
			FocusNode:          domain.TypedLiteral("42", domain.XSDInteger),
			WidgetScoringGraph: "@prefix shui: <http://www.w3.org/ns/shacl-ui#> .",
			DataGraphShapes:    "# data shapes",
			ShapesGraphShapes:  "# shapes shapes",
		}
		widget, score := "ex:Slider", 0.8
		sess.Request = &req
		sess.Steps = domain.StepState{
			Result: &domain.ScoringResult{
				WidgetScores:   []domain.WidgetScore{{Widget: widget, Score: score}},
				DefaultWidget:  &widget,
				DefaultScore:   &score,
				ExecutionSteps: []domain.ExecutionStep{},
				FocusNode:      req.FocusNode.String(),
			},
			CurrentStep: -1,
		}

		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.ID)
		require.NotNil(t, loaded.Request)
		assert.True(t, req.FocusNode.Equal(loaded.Request.FocusNode))
		require.NotNil(t, loaded.Steps.Result)
		assert.Equal(t, "ex:Slider", *loaded.Steps.Result.DefaultWidget)
		assert.Equal(t, -1, loaded.Steps.CurrentStep)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		ids := []string{sessionID + "-1", sessionID + "-2"}
		for _, id := range ids {
			require.NoError(t, store.Save(ctx, domain.NewSession(id)))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, sessions, id, fmt.Sprintf("session %s should be listed", id))
		}
	})
}

// RunExampleSourceContract verifies that an ExampleSource exposes exactly wantIDs
// and that every listed example can be loaded and turned into a valid request.
func RunExampleSourceContract(t *testing.T, source ExampleSource, wantIDs []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		list, err := source.List(ctx)
		require.NoError(t, err)

		ids := make([]string, 0, len(list))
		for _, ex := range list {
			ids = append(ids, ex.ID)
		}
		assert.ElementsMatch(t, wantIDs, ids)
	})

	t.Run("Get", func(t *testing.T) {
		shared, err := source.Shared(ctx)
		require.NoError(t, err)

		for _, id := range wantIDs {
			ex, err := source.Get(ctx, id)
			require.NoError(t, err, "example %s", id)
			assert.Equal(t, id, ex.ID)
			assert.NoError(t, ex.FocusNode.Validate())

			req := ex.Request(shared)
			assert.Equal(t, shared.WidgetScoringGraph, req.WidgetScoringGraph)
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := source.Get(ctx, "non-existent-example")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})
}
