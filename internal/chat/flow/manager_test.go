package flow

import (
	"context"
	"testing"
	"time"

	"fleet-assistant/internal/chat/store"
	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore blocks loads of one session until release is closed.
type gatedStore struct {
	store.Store
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error) {
	if sessionID == g.gated {
		close(g.entered)
		<-g.release
	}
	return g.Store.Load(ctx, sessionID)
}

func TestManager_LookupNeverCreates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Lookup(ctx, "session_unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, ok, err := h.store.Load(ctx, "session_unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_LookupRestoresStoredConversation(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "session_old", 3)

	c, err := h.manager.Lookup(context.Background(), "session_old")
	require.NoError(t, err)
	assert.Len(t, c.State().Messages, 3)
	assert.Equal(t, models.StageDiscovery, c.State().Stage)

	again, created := h.manager.Open(context.Background(), "session_old")
	assert.False(t, created)
	assert.Same(t, c, again)
}

func TestManager_SlowLoadDoesNotBlockOtherSessions(t *testing.T) {
	h := newHarness(t)
	gate := &gatedStore{Store: h.store, gated: "session_slow", entered: make(chan struct{}), release: make(chan struct{})}
	h.manager.deps.Store = gate

	done := make(chan *Controller)
	go func() {
		c, _ := h.manager.Open(context.Background(), "session_slow")
		done <- c
	}()
	<-gate.entered

	fast, created := h.manager.Open(context.Background(), "session_fast")
	assert.True(t, created)
	assert.Len(t, fast.State().Messages, 1)

	close(gate.release)
	slow := <-done
	require.NotNil(t, slow)
	assert.Len(t, slow.State().Messages, 1)
}

func TestManager_ConcurrentOpenSharesOneController(t *testing.T) {
	h := newHarness(t)
	gate := &gatedStore{Store: h.store, gated: "session_race", entered: make(chan struct{}), release: make(chan struct{})}
	h.manager.deps.Store = gate

	done := make(chan *Controller)
	go func() {
		c, _ := h.manager.Open(context.Background(), "session_race")
		done <- c
	}()
	<-gate.entered

	h.manager.deps.Store = h.store
	first, created := h.manager.Open(context.Background(), "session_race")
	require.True(t, created)

	close(gate.release)
	second := <-done
	assert.Same(t, first, second)

	rec, ok, err := h.store.Load(context.Background(), "session_race")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, rec.Messages, 1)
}

func TestController_PersistsUnderOpeningVisitor(t *testing.T) {
	h := newHarness(t)
	visitor := store.WithOwner(context.Background(), "visitor-1")

	c, created := h.manager.Open(visitor, "session_v")
	require.True(t, created)

	_, err := c.SendMessage(context.Background(), "we run 12 vans")
	require.NoError(t, err)
	h.scheduler.Advance(time.Minute)

	rec, ok, err := h.store.Load(visitor, "session_v")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(c.State().Messages), len(rec.Messages))
	assert.Greater(t, len(rec.Messages), 2)

	_, ok, _ = h.store.Load(context.Background(), "session_v")
	assert.False(t, ok)
}
