package flow

import (
	"context"

	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
)

// ActionResult tells the client what to do after a button press. OpenURL is
// set when the button carried a link.
type ActionResult struct {
	Action  string
	OpenURL string
	Message *models.Message
	Ignored bool
}

// HandleAction confirms a calendar, beta or features button press with one
// bot message and one analytics event. Unknown actions are ignored.
func (c *Controller) HandleAction(ctx context.Context, action, url string) (*ActionResult, error) {
	text, ok := confirmations[action]
	if !ok {
		c.logger.Debug("ignoring unknown action", map[string]interface{}{"action": action})
		return &ActionResult{Action: action, Ignored: true}, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	msg := models.NewMessage(models.MessageTypeBot, text, nil, c.now())
	c.appendLocked(ctx, msg)
	c.mu.Unlock()

	metrics.ChatActions.WithLabelValues(action).Inc()
	c.track(ctx, analytics.Event{Name: analytics.EventChatAction, Action: action, URL: url})

	return &ActionResult{Action: action, OpenURL: url, Message: &msg}, nil
}
