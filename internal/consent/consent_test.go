package consent

import (
	"context"
	"testing"
	"time"

	"fleet-assistant/internal/common/kv"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func setupService(t *testing.T) (*miniredis.Miniredis, *Service) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewService(kv.NewRedisBackend(client), 0, logger.NewTestLogger(t))
	s.now = func() time.Time { return testNow }
	return mr, s
}

func TestService_DefaultsWhenAbsent(t *testing.T) {
	_, s := setupService(t)

	prefs := s.Get(context.Background(), "visitor-1")
	assert.Equal(t, models.DefaultConsent(), prefs)
	assert.True(t, prefs.Allows(models.ConsentEssential))
	assert.False(t, s.Allows(context.Background(), "visitor-1", models.ConsentAnalytics))
}

func TestService_SaveForcesEssentialAndTTL(t *testing.T) {
	mr, s := setupService(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, "visitor-1", models.ConsentPreferences{Essential: false, Analytics: true})
	require.NoError(t, err)
	assert.True(t, saved.Essential)
	assert.Equal(t, testNow, saved.Timestamp)

	assert.Equal(t, DefaultTTL, mr.TTL(keyPrefix+"visitor-1"))

	got := s.Get(ctx, "visitor-1")
	assert.Equal(t, saved, got)
	assert.True(t, s.Allows(ctx, "visitor-1", models.ConsentAnalytics))
	assert.False(t, s.Allows(ctx, "visitor-1", models.ConsentMarketing))
}

func TestService_CorruptIsDiscarded(t *testing.T) {
	mr, s := setupService(t)
	require.NoError(t, mr.Set(keyPrefix+"visitor-1", "{not json"))

	assert.Equal(t, models.DefaultConsent(), s.Get(context.Background(), "visitor-1"))
	assert.False(t, mr.Exists(keyPrefix+"visitor-1"))
}

func TestService_MissingVisitor(t *testing.T) {
	_, s := setupService(t)

	_, err := s.Save(context.Background(), "", models.ConsentPreferences{})
	assert.ErrorIs(t, err, ErrMissingVisitor)
	assert.Equal(t, models.DefaultConsent(), s.Get(context.Background(), ""))
}
