// Package store persists conversation records for the chat controller.
package store

import (
	"context"
	"time"

	"fleet-assistant/internal/models"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultCapacity  = 50
)

// Store is read-your-writes within one process. Loads never return records
// whose LastActivity is older than the retention window.
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error)
	Save(ctx context.Context, record *models.ConversationRecord) error
	AppendMessage(ctx context.Context, sessionID string, msg models.Message) error
	SetUserContext(ctx context.Context, sessionID string, partial models.UserProfile) error
	SetLeadScore(ctx context.Context, sessionID string, score int) error
}

// Purger removes records whose LastActivity is before cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

type Options struct {
	Retention time.Duration
	Capacity  int
}

func (o Options) withDefaults() Options {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	return o
}

func expired(rec *models.ConversationRecord, now time.Time, retention time.Duration) bool {
	return now.Sub(rec.LastActivity) > retention
}

// loadSaver is the minimum needed to express the convenience mutations.
type loadSaver interface {
	Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error)
	Save(ctx context.Context, record *models.ConversationRecord) error
}

// update loads sessionID (creating it when absent), applies fn, stamps activity and saves.
func update(ctx context.Context, s loadSaver, sessionID string, now time.Time, fn func(*models.ConversationRecord)) error {
	rec, ok, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		rec = models.NewConversationRecord(sessionID, now)
	}
	fn(rec)
	rec.LastActivity = now.UTC()
	rec.IsActive = true
	return s.Save(ctx, rec)
}

func appendMessage(msg models.Message) func(*models.ConversationRecord) {
	return func(rec *models.ConversationRecord) { rec.Messages = append(rec.Messages, msg) }
}

func mergeUserContext(partial models.UserProfile) func(*models.ConversationRecord) {
	return func(rec *models.ConversationRecord) { rec.UserContext.Merge(partial) }
}

func setLeadScore(score int) func(*models.ConversationRecord) {
	return func(rec *models.ConversationRecord) {
		rec.LeadScore = score
		rec.UserContext.LeadScore = score
	}
}
