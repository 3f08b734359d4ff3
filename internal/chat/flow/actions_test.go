package flow

import (
	"context"
	"testing"

	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleAction_Beta(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _ := h.manager.Open(ctx, "session_1")
	before := len(c.State().Messages)

	result, err := c.HandleAction(ctx, models.ActionBeta, "")
	require.NoError(t, err)
	assert.False(t, result.Ignored)
	assert.Empty(t, result.OpenURL)
	require.NotNil(t, result.Message)
	assert.Equal(t, BetaConfirmation, result.Message.Content)

	msgs := c.State().Messages
	assert.Len(t, msgs, before+1)
	assert.Equal(t, 1, countContent(msgs, BetaConfirmation))

	events := h.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.EventChatAction, events[0].Name)
	assert.Equal(t, models.ActionBeta, events[0].Action)
	assert.Equal(t, "session_1", events[0].SessionID)
}

func TestHandleAction_CalendarOpensURL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _ := h.manager.Open(ctx, "session_1")

	result, err := c.HandleAction(ctx, models.ActionCalendar, "https://cal.example.com/demo")
	require.NoError(t, err)
	assert.Equal(t, "https://cal.example.com/demo", result.OpenURL)
	assert.Equal(t, CalendarConfirmation, result.Message.Content)

	events := h.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "https://cal.example.com/demo", events[0].URL)
}

func TestHandleAction_UnknownIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _ := h.manager.Open(ctx, "session_1")
	before := len(c.State().Messages)

	result, err := c.HandleAction(ctx, "newsletter", "https://example.com")
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Nil(t, result.Message)
	assert.Len(t, c.State().Messages, before)
	assert.Empty(t, h.events.Events())
}
