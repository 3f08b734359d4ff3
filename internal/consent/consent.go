// Package consent persists visitors' cookie consent preferences.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleet-assistant/internal/common/kv"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"
)

const (
	keyPrefix  = "fleetchat_cookie_consent:"
	DefaultTTL = 365 * 24 * time.Hour
)

var ErrMissingVisitor = errors.New("consent: visitor id is required")

type Service struct {
	backend kv.Backend
	ttl     time.Duration
	logger  logger.Logger
	now     func() time.Time
}

func NewService(backend kv.Backend, ttl time.Duration, log logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		backend: backend,
		ttl:     ttl,
		logger:  log.WithFields(map[string]interface{}{"component": "consent"}),
		now:     time.Now,
	}
}

// Get returns essential-only defaults when nothing usable is stored.
func (s *Service) Get(ctx context.Context, visitorID string) models.ConsentPreferences {
	if visitorID == "" {
		return models.DefaultConsent()
	}

	raw, err := s.backend.Get(ctx, keyPrefix+visitorID)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("consent lookup failed", map[string]interface{}{"visitorId": visitorID, "error": err})
		}
		return models.DefaultConsent()
	}

	var prefs models.ConsentPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		s.logger.Warn("discarding corrupt consent", map[string]interface{}{"visitorId": visitorID, "error": err})
		_ = s.backend.Del(ctx, keyPrefix+visitorID)
		return models.DefaultConsent()
	}
	prefs.Essential = true
	return prefs
}

// Save forces essential consent and stamps the time.
func (s *Service) Save(ctx context.Context, visitorID string, prefs models.ConsentPreferences) (models.ConsentPreferences, error) {
	if visitorID == "" {
		return models.ConsentPreferences{}, ErrMissingVisitor
	}

	prefs.Essential = true
	prefs.Timestamp = s.now().UTC()

	data, err := json.Marshal(prefs)
	if err != nil {
		return models.ConsentPreferences{}, fmt.Errorf("encode consent: %w", err)
	}
	if err := s.backend.Set(ctx, keyPrefix+visitorID, string(data), s.ttl); err != nil {
		return models.ConsentPreferences{}, err
	}
	return prefs, nil
}

func (s *Service) Allows(ctx context.Context, visitorID string, category models.ConsentCategory) bool {
	return s.Get(ctx, visitorID).Allows(category)
}
