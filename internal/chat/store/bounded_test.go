package store

import (
	"testing"
	"time"

	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

func recordAt(id string, at time.Time) *models.ConversationRecord {
	return models.NewConversationRecord(id, at)
}

func TestBoundedRecords_EvictsOldestActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newBoundedRecords(3)

	assert.Empty(t, b.put(recordAt("b", base.Add(2*time.Minute))))
	assert.Empty(t, b.put(recordAt("a", base)))
	assert.Empty(t, b.put(recordAt("c", base.Add(3*time.Minute))))

	evicted := b.put(recordAt("d", base.Add(4*time.Minute)))
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, 3, b.len())
	assert.Nil(t, b.get("a"))
	assert.NotNil(t, b.get("d"))
}

func TestBoundedRecords_ReplaceDoesNotEvict(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newBoundedRecords(2)
	b.put(recordAt("a", base))
	b.put(recordAt("b", base))

	updated := recordAt("a", base.Add(time.Hour))
	assert.Empty(t, b.put(updated))
	assert.Equal(t, 2, b.len())
	assert.Equal(t, base.Add(time.Hour), b.get("a").LastActivity)
}

func TestBoundedRecords_PruneAndRemove(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newBoundedRecords(5)
	b.put(recordAt("old", base.Add(-48*time.Hour)))
	b.put(recordAt("new", base))
	b.put(recordAt("older", base.Add(-72*time.Hour)))

	assert.Equal(t, 2, b.pruneBefore(base.Add(-24*time.Hour)))
	assert.Equal(t, 1, b.len())

	assert.True(t, b.remove("new"))
	assert.False(t, b.remove("new"))
	assert.Equal(t, 0, b.len())
}

func TestBoundedRecords_CloneIsDeep(t *testing.T) {
	b := newBoundedRecords(2)
	b.put(recordAt("a", time.Now()))

	c := b.clone()
	c.get("a").LeadScore = 99
	assert.Equal(t, 0, b.get("a").LeadScore)
}
