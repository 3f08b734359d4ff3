package store

import (
	"time"

	"fleet-assistant/internal/models"
)

// boundedRecords keeps at most capacity records. When full, the record with
// the oldest LastActivity is evicted by a linear scan.
type boundedRecords struct {
	capacity int
	items    []*models.ConversationRecord
}

func newBoundedRecords(capacity int) *boundedRecords {
	return &boundedRecords{capacity: capacity, items: make([]*models.ConversationRecord, 0, capacity)}
}

func (b *boundedRecords) len() int { return len(b.items) }

func (b *boundedRecords) index(sessionID string) int {
	for i, rec := range b.items {
		if rec.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func (b *boundedRecords) get(sessionID string) *models.ConversationRecord {
	if i := b.index(sessionID); i >= 0 {
		return b.items[i]
	}
	return nil
}

// put inserts or replaces rec and returns the evicted session ids.
func (b *boundedRecords) put(rec *models.ConversationRecord) []string {
	if i := b.index(rec.SessionID); i >= 0 {
		b.items[i] = rec
		return nil
	}
	b.items = append(b.items, rec)

	var evicted []string
	for len(b.items) > b.capacity {
		oldest := 0
		for i, item := range b.items {
			if item.LastActivity.Before(b.items[oldest].LastActivity) {
				oldest = i
			}
		}
		evicted = append(evicted, b.items[oldest].SessionID)
		b.items = append(b.items[:oldest], b.items[oldest+1:]...)
	}
	return evicted
}

func (b *boundedRecords) remove(sessionID string) bool {
	i := b.index(sessionID)
	if i < 0 {
		return false
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	return true
}

// pruneBefore drops records inactive since before cutoff and returns how many were removed.
func (b *boundedRecords) pruneBefore(cutoff time.Time) int {
	kept := b.items[:0]
	for _, rec := range b.items {
		if !rec.LastActivity.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(b.items) - len(kept)
	for i := len(kept); i < len(b.items); i++ {
		b.items[i] = nil
	}
	b.items = kept
	return removed
}

func (b *boundedRecords) records() []*models.ConversationRecord {
	return b.items
}

func (b *boundedRecords) clone() *boundedRecords {
	out := newBoundedRecords(b.capacity)
	for _, rec := range b.items {
		out.items = append(out.items, rec.Clone())
	}
	return out
}
