package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrAIReplyTimeout = errors.New("AI_REPLY_TIMEOUT")
	ErrAIReplyFailed  = errors.New("AI_REPLY_FAILED")
	// ErrEmptyReply means the endpoint reported success but sent no text.
	ErrEmptyReply = errors.New("AI_EMPTY_REPLY")
)

// Generator produces the bot reply for one visitor turn.
type Generator interface {
	Generate(ctx context.Context, sessionID, userText string, profile models.UserProfile, history []models.Message) (Reply, error)
}

type CallRecorder interface {
	RecordAICall(ctx context.Context, duration time.Duration, outcome string)
}

type Client struct {
	config   Config
	client   *http.Client
	tracer   trace.Tracer
	recorder CallRecorder
	logger   logger.Logger
}

func NewClient(config Config, recorder CallRecorder, log logger.Logger) *Client {
	return &Client{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		tracer:   otel.Tracer("fleet-assistant/chat/ai"),
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "ai-client"}),
	}
}

func (c *Client) Generate(ctx context.Context, sessionID, userText string, profile models.UserProfile, history []models.Message) (Reply, error) {
	ctx, span := c.tracer.Start(ctx, "ai.generate", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("history.length", len(history)),
	))
	defer span.End()

	start := time.Now()
	reply, err := c.generate(ctx, Request{
		SessionID:           sessionID,
		Message:             userText,
		UserContext:         profile,
		ConversationHistory: historyFrom(history, c.config.historyTurns()),
	})

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !reply.Success:
		outcome = "fallback"
	}
	if c.recorder != nil {
		c.recorder.RecordAICall(ctx, time.Since(start), outcome)
	}

	if err != nil {
		c.logger.Warn("AI reply failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
	return reply, err
}

func (c *Client) generate(ctx context.Context, payload Request) (Reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: encode request: %v", ErrAIReplyFailed, err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Reply{}, ErrAIReplyTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.endpoint(), bytes.NewReader(body))
		if err != nil {
			return Reply{}, fmt.Errorf("%w: %v", ErrAIReplyFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return Reply{}, ErrAIReplyTimeout
		}
	}

	if lastErr != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrAIReplyFailed, lastErr)
	}
	if resp == nil {
		return Reply{}, fmt.Errorf("%w: no successful response after retries", ErrAIReplyFailed)
	}
	defer resp.Body.Close()

	var apiResponse Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return Reply{}, fmt.Errorf("%w: decode error: %v", ErrAIReplyFailed, err)
	}

	text := strings.TrimSpace(apiResponse.Response)
	if text == "" {
		if apiResponse.Success {
			return Reply{Success: true, Usage: apiResponse.Usage}, ErrEmptyReply
		}
		return Reply{}, fmt.Errorf("%w: %s", ErrAIReplyFailed, apiResponse.Error)
	}

	return Reply{Text: text, Success: apiResponse.Success, Usage: apiResponse.Usage}, nil
}
