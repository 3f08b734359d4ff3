package flow

import (
	"testing"
	"time"

	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		stage       models.Stage
		score       int
		wantStage   models.Stage
		wantConvert bool
	}{
		{models.StageGreeting, 0, models.StageGreeting, false},
		{models.StageGreeting, 19, models.StageGreeting, false},
		{models.StageGreeting, 20, models.StageDiscovery, false},
		{models.StageGreeting, 40, models.StageQualification, false},
		{models.StageGreeting, 70, models.StageConversion, true},
		{models.StageDiscovery, 45, models.StageDiscovery, false},
		{models.StageDiscovery, 75, models.StageConversion, true},
		{models.StageQualification, 69, models.StageQualification, false},
		{models.StageQualification, 100, models.StageConversion, true},
		{models.StageConversion, 100, models.StageConversion, false},
		{models.StageConversion, 10, models.StageConversion, false},
	}

	for _, tt := range tests {
		got, convert := Next(tt.stage, tt.score)
		assert.Equal(t, tt.wantStage, got, "%s@%d", tt.stage, tt.score)
		assert.Equal(t, tt.wantConvert, convert, "%s@%d", tt.stage, tt.score)
	}
}

func TestStageFromMessageCount(t *testing.T) {
	assert.Equal(t, models.StageGreeting, StageFromMessageCount(0))
	assert.Equal(t, models.StageGreeting, StageFromMessageCount(2))
	assert.Equal(t, models.StageDiscovery, StageFromMessageCount(3))
	assert.Equal(t, models.StageDiscovery, StageFromMessageCount(5))
	assert.Equal(t, models.StageQualification, StageFromMessageCount(6))
	assert.Equal(t, models.StageQualification, StageFromMessageCount(10))
	assert.Equal(t, models.StageConversion, StageFromMessageCount(11))
}

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	s.AfterFunc(time.Second, func() { order = append(order, "a") })
	stopped := s.AfterFunc(time.Second, func() { order = append(order, "never") })
	assert.True(t, stopped.Stop())

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.Pending())

	s.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, s.Pending())

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Empty(t, s.Pending())
}
