// Package session issues one conversation id per browser tab.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-assistant/internal/common/kv"
	"fleet-assistant/internal/common/logger"

	"github.com/google/uuid"
)

const (
	keyPrefix  = "fleetchat_session:"
	DefaultTTL = 24 * time.Hour
)

type Provider struct {
	backend kv.Backend
	ttl     time.Duration
	logger  logger.Logger
	now     func() time.Time
}

func NewProvider(backend kv.Backend, ttl time.Duration, log logger.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		backend: backend,
		ttl:     ttl,
		logger:  log.WithFields(map[string]interface{}{"component": "session"}),
		now:     time.Now,
	}
}

// NewID returns a fresh id of the form session_<unixms>_<8 hex chars>.
func NewID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// GetOrCreateSessionID returns the id bound to tabID, creating it on first use.
// When storage is unavailable every call yields a fresh id.
func (p *Provider) GetOrCreateSessionID(ctx context.Context, tabID string) string {
	if tabID == "" || p.backend == nil {
		return NewID(p.now())
	}

	key := keyPrefix + tabID
	existing, err := p.backend.Get(ctx, key)
	switch {
	case err == nil && existing != "":
		if err := p.backend.Expire(ctx, key, p.ttl); err != nil {
			p.logger.Debug("session ttl refresh failed", map[string]interface{}{"error": err})
		}
		return existing
	case err != nil && !errors.Is(err, kv.ErrNotFound):
		p.logger.Warn("session storage unavailable, issuing ephemeral id", map[string]interface{}{"error": err})
		return NewID(p.now())
	}

	id := NewID(p.now())
	if err := p.backend.Set(ctx, key, id, p.ttl); err != nil {
		p.logger.Warn("session id not persisted", map[string]interface{}{"error": err})
	}
	return id
}
