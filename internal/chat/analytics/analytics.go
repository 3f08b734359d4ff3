// Package analytics forwards chat events to the tag-manager collector. Every
// path is best effort: Track never returns an error and never blocks beyond
// the forwarder's own timeout.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
)

const (
	EventChatAction      = "chat_action"
	EventLeadQualified   = "lead_qualified"
	EventStageChanged    = "chat_stage_changed"
	EventSurveySubmitted = "survey_submitted"
)

type Event struct {
	Name       string                 `json:"event"`
	SessionID  string                 `json:"sessionId,omitempty"`
	VisitorID  string                 `json:"visitorId,omitempty"`
	Action     string                 `json:"action,omitempty"`
	URL        string                 `json:"url,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

type Forwarder interface {
	Track(ctx context.Context, event Event)
}

type visitorKey struct{}

// WithVisitor attaches the visitor id used for consent lookups.
func WithVisitor(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorKey{}, visitorID)
}

func VisitorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey{}).(string)
	return id
}

// HTTPForwarder posts events to the data-layer collector.
type HTTPForwarder struct {
	url    string
	client *http.Client
	logger logger.Logger
}

func NewHTTPForwarder(url string, timeout time.Duration, log logger.Logger) *HTTPForwarder {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPForwarder{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

func (f *HTTPForwarder) Track(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.VisitorID == "" {
		event.VisitorID = VisitorFromContext(ctx)
	}

	if err := f.post(ctx, event); err != nil {
		metrics.AnalyticsEvents.WithLabelValues(event.Name, "failed").Inc()
		f.logger.Warn("analytics event dropped", map[string]interface{}{
			"event": event.Name,
			"error": err.Error(),
		})
		return
	}
	metrics.AnalyticsEvents.WithLabelValues(event.Name, "forwarded").Inc()
}

func (f *HTTPForwarder) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, f.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

type ConsentSource interface {
	Get(ctx context.Context, visitorID string) models.ConsentPreferences
}

// ConsentGate forwards only events whose visitor allows analytics cookies.
type ConsentGate struct {
	next    Forwarder
	consent ConsentSource
}

func NewConsentGate(next Forwarder, consent ConsentSource) *ConsentGate {
	return &ConsentGate{next: next, consent: consent}
}

func (g *ConsentGate) Track(ctx context.Context, event Event) {
	if event.VisitorID == "" {
		event.VisitorID = VisitorFromContext(ctx)
	}
	if !g.consent.Get(ctx, event.VisitorID).Allows(models.ConsentAnalytics) {
		metrics.AnalyticsEvents.WithLabelValues(event.Name, "suppressed").Inc()
		return
	}
	g.next.Track(ctx, event)
}

// Discard counts events without sending them anywhere.
type Discard struct{}

func (Discard) Track(_ context.Context, event Event) {
	metrics.AnalyticsEvents.WithLabelValues(event.Name, "discarded").Inc()
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Track(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
