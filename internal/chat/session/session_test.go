package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"fleet-assistant/internal/common/kv"
	"fleet-assistant/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^session_\d+_[0-9a-f]{8}$`)

func setupRedis(t *testing.T) (*miniredis.Miniredis, kv.Backend) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, kv.NewRedisBackend(client)
}

func TestNewID_Format(t *testing.T) {
	id := NewID(time.UnixMilli(1700000000000))
	assert.Regexp(t, idPattern, id)
	assert.Contains(t, id, "session_1700000000000_")
	assert.NotEqual(t, id, NewID(time.UnixMilli(1700000000000)))
}

func TestGetOrCreateSessionID_StableWithinTab(t *testing.T) {
	mr, backend := setupRedis(t)
	p := NewProvider(backend, time.Hour, logger.NewNoOpLogger())
	ctx := context.Background()

	first := p.GetOrCreateSessionID(ctx, "tab-a")
	second := p.GetOrCreateSessionID(ctx, "tab-a")
	other := p.GetOrCreateSessionID(ctx, "tab-b")

	assert.Regexp(t, idPattern, first)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Equal(t, time.Hour, mr.TTL("fleetchat_session:tab-a"))
}

func TestGetOrCreateSessionID_ExpiredTabGetsNewID(t *testing.T) {
	mr, backend := setupRedis(t)
	p := NewProvider(backend, time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()

	first := p.GetOrCreateSessionID(ctx, "tab-a")
	mr.FastForward(2 * time.Minute)

	assert.NotEqual(t, first, p.GetOrCreateSessionID(ctx, "tab-a"))
}

func TestGetOrCreateSessionID_StorageUnavailable(t *testing.T) {
	client, mock := redismock.NewClientMock()
	p := NewProvider(kv.NewRedisBackend(client), time.Hour, logger.NewNoOpLogger())
	ctx := context.Background()

	mock.ExpectGet("fleetchat_session:tab-a").SetErr(errors.New("connection refused"))
	mock.ExpectGet("fleetchat_session:tab-a").SetErr(errors.New("connection refused"))

	first := p.GetOrCreateSessionID(ctx, "tab-a")
	second := p.GetOrCreateSessionID(ctx, "tab-a")

	assert.Regexp(t, idPattern, first)
	assert.Regexp(t, idPattern, second)
	assert.NotEqual(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateSessionID_NoTab(t *testing.T) {
	_, backend := setupRedis(t)
	p := NewProvider(backend, 0, logger.NewNoOpLogger())

	assert.NotEqual(t, p.GetOrCreateSessionID(context.Background(), ""), p.GetOrCreateSessionID(context.Background(), ""))
}
