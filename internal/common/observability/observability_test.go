package observability

import (
	"context"
	"testing"
	"time"

	"fleet-assistant/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestNilObservabilityIsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordAICall(context.Background(), time.Second, "success")
		o.RecordTurn(context.Background(), time.Second, "ai")
	})
}

func TestNew_WithoutJaeger(t *testing.T) {
	o := New("fleet-assistant-test", "", logger.NewNoOpLogger())
	defer o.Shutdown()

	assert.Nil(t, o.tracerProvider)
	assert.NotPanics(t, func() {
		o.RecordAICall(context.Background(), 120*time.Millisecond, "fallback")
		o.RecordTurn(context.Background(), time.Second, "ai")
	})
}
