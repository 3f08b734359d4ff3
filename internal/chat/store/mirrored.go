package store

import (
	"context"
	"time"

	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
)

// MirroredStore writes to primary and copies every write to mirror. Mirror
// failures are logged and never returned. A primary miss falls back to the
// mirror and re-seeds the primary.
type MirroredStore struct {
	primary Store
	mirror  Store
	logger  logger.Logger
}

func NewMirroredStore(primary, mirror Store, log logger.Logger) *MirroredStore {
	return &MirroredStore{
		primary: primary,
		mirror:  mirror,
		logger:  log.WithFields(map[string]interface{}{"component": "mirrored-store"}),
	}
}

func (s *MirroredStore) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error) {
	rec, ok, err := s.primary.Load(ctx, sessionID)
	if err != nil || ok {
		return rec, ok, err
	}

	rec, ok, err = s.mirror.Load(ctx, sessionID)
	if err != nil {
		s.mirrorFailed("load", sessionID, err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	if err := s.primary.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to re-seed primary from mirror", map[string]interface{}{"sessionId": sessionID, "error": err})
	}
	return rec, true, nil
}

func (s *MirroredStore) Save(ctx context.Context, record *models.ConversationRecord) error {
	if err := s.primary.Save(ctx, record); err != nil {
		return err
	}
	if err := s.mirror.Save(ctx, record); err != nil {
		s.mirrorFailed("save", record.SessionID, err)
	}
	return nil
}

func (s *MirroredStore) AppendMessage(ctx context.Context, sessionID string, msg models.Message) error {
	return s.both("append", sessionID, func(st Store) error { return st.AppendMessage(ctx, sessionID, msg) })
}

func (s *MirroredStore) SetUserContext(ctx context.Context, sessionID string, partial models.UserProfile) error {
	return s.both("user_context", sessionID, func(st Store) error { return st.SetUserContext(ctx, sessionID, partial) })
}

func (s *MirroredStore) SetLeadScore(ctx context.Context, sessionID string, score int) error {
	return s.both("lead_score", sessionID, func(st Store) error { return st.SetLeadScore(ctx, sessionID, score) })
}

// Purge purges both sides and reports the primary's count.
func (s *MirroredStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	if p, ok := s.primary.(Purger); ok {
		n, err := p.Purge(ctx, cutoff)
		if err != nil {
			return n, err
		}
		removed = n
	}
	if p, ok := s.mirror.(Purger); ok {
		if _, err := p.Purge(ctx, cutoff); err != nil {
			s.mirrorFailed("purge", "", err)
		}
	}
	return removed, nil
}

func (s *MirroredStore) both(op, sessionID string, fn func(Store) error) error {
	if err := fn(s.primary); err != nil {
		return err
	}
	if err := fn(s.mirror); err != nil {
		s.mirrorFailed(op, sessionID, err)
	}
	return nil
}

func (s *MirroredStore) mirrorFailed(op, sessionID string, err error) {
	metrics.StoreErrors.WithLabelValues("mirror", op).Inc()
	s.logger.Warn("conversation mirror failed", map[string]interface{}{
		"operation": op,
		"sessionId": sessionID,
		"error":     err,
	})
}
