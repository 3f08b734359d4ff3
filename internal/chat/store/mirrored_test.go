package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every call with err.
type failingStore struct {
	err   error
	calls int
}

func (f *failingStore) Load(context.Context, string) (*models.ConversationRecord, bool, error) {
	f.calls++
	return nil, false, f.err
}
func (f *failingStore) Save(context.Context, *models.ConversationRecord) error {
	f.calls++
	return f.err
}
func (f *failingStore) AppendMessage(context.Context, string, models.Message) error {
	f.calls++
	return f.err
}
func (f *failingStore) SetUserContext(context.Context, string, models.UserProfile) error {
	f.calls++
	return f.err
}
func (f *failingStore) SetLeadScore(context.Context, string, int) error {
	f.calls++
	return f.err
}
func (f *failingStore) Purge(context.Context, time.Time) (int, error) {
	f.calls++
	return 0, f.err
}

func TestMirroredStore_MirrorFailuresAreSwallowed(t *testing.T) {
	_, backend := setupRedis(t)
	primary := newLocal(t, backend, Options{})
	mirror := &failingStore{err: errors.New("postgres down")}
	s := NewMirroredStore(primary, mirror, logger.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "s", models.NewMessage(models.MessageTypeUser, "hi", nil, testNow)))
	require.NoError(t, s.SetUserContext(ctx, "s", models.UserProfile{FleetSize: models.FleetSize5To10}))
	require.NoError(t, s.SetLeadScore(ctx, "s", 10))
	require.NoError(t, s.Save(ctx, sampleRecord("t", testNow)))
	assert.Equal(t, 4, mirror.calls)

	rec, ok, err := s.Load(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, rec.LeadScore)

	_, err = s.Purge(ctx, testNow)
	assert.NoError(t, err)
}

func TestMirroredStore_PrimaryErrorsPropagate(t *testing.T) {
	primary := &failingStore{err: errors.New("encode failure")}
	mirror := &failingStore{}
	s := NewMirroredStore(primary, mirror, logger.NewNoOpLogger())

	err := s.SetLeadScore(context.Background(), "s", 10)
	assert.Error(t, err)
	assert.Equal(t, 0, mirror.calls)
}

func TestMirroredStore_LoadFallsBackToMirrorAndReseeds(t *testing.T) {
	_, primaryBackend := setupRedis(t)
	_, mirrorBackend := setupRedis(t)
	primary := newLocal(t, primaryBackend, Options{})
	mirror := newLocal(t, mirrorBackend, Options{})
	ctx := context.Background()

	rec := sampleRecord("from-mirror", testNow)
	require.NoError(t, mirror.Save(ctx, rec))

	s := NewMirroredStore(primary, mirror, logger.NewNoOpLogger())
	got, ok, err := s.Load(ctx, "from-mirror")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok, _ = primary.Load(ctx, "from-mirror")
	assert.True(t, ok)
}

func TestMirroredStore_ActiveSessionSurvivesOtherVisitors(t *testing.T) {
	_, primaryBackend := setupRedis(t)
	_, mirrorBackend := setupRedis(t)
	s := NewMirroredStore(newLocal(t, primaryBackend, Options{}), newLocal(t, mirrorBackend, Options{}), logger.NewNoOpLogger())
	active := WithOwner(context.Background(), "visitor-active")

	require.NoError(t, s.AppendMessage(active, "session_active", models.NewMessage(models.MessageTypeUser, "first", nil, testNow)))
	for i := 0; i < DefaultCapacity+1; i++ {
		other := WithOwner(context.Background(), fmt.Sprintf("visitor-%d", i))
		require.NoError(t, s.AppendMessage(other, fmt.Sprintf("session_%d", i),
			models.NewMessage(models.MessageTypeUser, "hi", nil, testNow)))
	}
	require.NoError(t, s.AppendMessage(active, "session_active", models.NewMessage(models.MessageTypeUser, "second", nil, testNow)))

	rec, ok, err := s.Load(active, "session_active")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Messages, 2)
	assert.Equal(t, "first", rec.Messages[0].Content)
	assert.Equal(t, "second", rec.Messages[1].Content)
}
