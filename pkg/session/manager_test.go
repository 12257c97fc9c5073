package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/scorebridge/pkg/adapters/memory"
	"github.com/aretw0/scorebridge/pkg/adapters/redis"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/persistence"
	"github.com/aretw0/scorebridge/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore adds latency so that missing locks would lose updates.
type slowStore struct {
	*persistence.SessionStore
}

func (s slowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	return s.SessionStore.Load(ctx, id)
}

func newSlowStore() slowStore {
	return slowStore{persistence.NewSessionStore(memory.NewStore(), "")}
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	manager := session.NewManager(newSlowStore())
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(s *domain.Session) error {
				s.Steps.CurrentStep++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	// Starts at -1.
	assert.Equal(t, writers-1, sess.Steps.CurrentStep, "no update may be lost")
}

func TestManager_LoadOrStart(t *testing.T) {
	manager := session.NewManager(newSlowStore())
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, sess)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, -1, sess.Steps.CurrentStep)
	assert.Nil(t, sess.Request)
}

func TestManager_UpdateErrorDoesNotPersist(t *testing.T) {
	manager := session.NewManager(persistence.NewSessionStore(memory.NewStore(), ""))
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := manager.Update(ctx, "s", func(s *domain.Session) error {
		s.Steps.CurrentStep = 5
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sess, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, -1, sess.Steps.CurrentStep)
}

// ctxStore refuses writes under a done context, like a network-backed store.
type ctxStore struct {
	*persistence.SessionStore
}

func (s ctxStore) Save(ctx context.Context, sess *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.SessionStore.Save(ctx, sess)
}

func TestManager_UpdateSurvivesCancellation(t *testing.T) {
	manager := session.NewManager(ctxStore{persistence.NewSessionStore(memory.NewStore(), "")})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := manager.Update(ctx, "s", func(s *domain.Session) error {
		s.Steps.IsError = true
		s.Steps.ErrorMessage = "context canceled"
		cancel()
		return nil
	})
	require.NoError(t, err)

	sess, err := manager.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, sess.Steps.IsError)
	assert.Equal(t, "context canceled", sess.Steps.ErrorMessage)
}

func TestManager_LoadMissing(t *testing.T) {
	manager := session.NewManager(persistence.NewSessionStore(memory.NewStore(), ""))
	_, err := manager.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_ModifyRequiresSession(t *testing.T) {
	manager := session.NewManager(newSlowStore())
	ctx := context.Background()

	called := false
	_, err := manager.Modify(ctx, "ghost", func(*domain.Session) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, called)

	_, err = manager.LoadOrStart(ctx, "ghost")
	require.NoError(t, err)
	sess, err := manager.Modify(ctx, "ghost", func(s *domain.Session) error {
		s.Steps.CurrentStep = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Steps.CurrentStep)
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	manager := session.NewManager(
		persistence.NewSessionStore(redis.NewFromClient(client), ""),
		session.WithLocker(redis.NewLocker(client, "scorebridge:")),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	err = manager.WithLock(ctx, "locked", func(ctx context.Context) error {
		assert.True(t, mr.Exists("scorebridge:lock:locked"), "distributed lock should be held inside WithLock")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("scorebridge:lock:locked"), "distributed lock should be released")
}
