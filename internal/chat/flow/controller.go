// Package flow runs the lead-qualification conversation for each chat
// session: keyword extraction, scoring, stage transitions, reply pacing and
// the conversion follow-up.
package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"fleet-assistant/internal/chat/ai"
	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/chat/chunker"
	"fleet-assistant/internal/chat/extract"
	"fleet-assistant/internal/chat/fallback"
	"fleet-assistant/internal/chat/scoring"
	"fleet-assistant/internal/chat/store"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
)

var (
	ErrEmptyMessage    = errors.New("flow: message is empty")
	ErrTurnInProgress  = errors.New("flow: a turn is already in progress")
	ErrClosed          = errors.New("flow: conversation closed")
	ErrSessionNotFound = errors.New("flow: conversation not found")
)

// Reply sources, also used as metric labels.
const (
	SourceAI         = "ai"
	SourceAIFallback = "ai_fallback"
	SourceFallback   = "fallback"
	SourceTrouble    = "connection_trouble"
)

type LeadPublisher interface {
	PublishLead(ctx context.Context, lead models.LeadHandoff) error
}

type TurnRecorder interface {
	RecordTurn(ctx context.Context, duration time.Duration, source string)
}

// Dependencies are shared by every controller of a Manager. Store, Scheduler
// and Logger are required.
type Dependencies struct {
	Store     store.Store
	AI        ai.Generator
	Analytics analytics.Forwarder
	Leads     LeadPublisher
	Scheduler Scheduler
	Turns     TurnRecorder
	Logger    logger.Logger
}

// ScheduledMessage is a bot message that will be appended after Delay.
type ScheduledMessage struct {
	Content string
	Buttons []models.Button
	Delay   time.Duration
}

type TurnResult struct {
	UserMessage   models.Message
	PreviousStage models.Stage
	Stage         models.Stage
	LeadScore     int
	Source        string
	Deliveries    []ScheduledMessage
	FollowUp      *ScheduledMessage
}

// State is a snapshot of a conversation.
type State struct {
	SessionID string
	Stage     models.Stage
	Profile   models.UserProfile
	Messages  []models.Message
}

// Controller owns one session's messages, profile and stage. At most one
// turn runs at a time.
type Controller struct {
	mu           sync.Mutex
	sessionID    string
	owner        string
	messages     []models.Message
	profile      models.UserProfile
	stage        models.Stage
	lastActivity time.Time
	inFlight     bool
	closed       bool
	timers       map[int]Timer
	nextTimer    int

	cfg     Config
	deps    Dependencies
	chunker *chunker.Chunker
	logger  logger.Logger
	now     func() time.Time
}

func newController(sessionID, owner string, rec *models.ConversationRecord, cfg Config, deps Dependencies, now func() time.Time) *Controller {
	c := &Controller{
		sessionID:    sessionID,
		owner:        owner,
		stage:        models.StageGreeting,
		profile:      models.UserProfile{Challenges: []string{}, Interests: []string{}},
		lastActivity: now(),
		timers:       make(map[int]Timer),
		cfg:          cfg,
		deps:         deps,
		chunker:      chunker.New(cfg.ChunkSpacing),
		logger:       deps.Logger.WithFields(map[string]interface{}{"sessionId": sessionID}),
		now:          now,
	}
	if rec != nil {
		c.messages = append([]models.Message(nil), rec.Messages...)
		c.profile = rec.UserContext.Clone()
		c.profile.LeadScore = rec.LeadScore
		c.stage = StageFromMessageCount(len(rec.Messages))
		c.lastActivity = rec.LastActivity
	}
	return c
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SessionID: c.sessionID,
		Stage:     c.stage,
		Profile:   c.profile.Clone(),
		Messages:  append([]models.Message(nil), c.messages...),
	}
}

// greetLocked appends the opening bot message of a new session.
func (c *Controller) greetLocked(ctx context.Context) {
	c.appendLocked(ctx, models.NewMessage(models.MessageTypeBot, GreetingText,
		&models.MessageMetadata{Buttons: greetingButtons()}, c.now()))
}

// SendMessage runs one visitor turn. The returned deliveries are already
// scheduled; each is appended to the conversation when its delay elapses.
func (c *Controller) SendMessage(ctx context.Context, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	started := c.now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	c.inFlight = true

	history := append([]models.Message(nil), c.messages...)
	userMsg := models.NewMessage(models.MessageTypeUser, text, nil, started)
	c.appendLocked(ctx, userMsg)

	profile, matched := extract.Update(c.profile, text)
	score := scoring.Score(profile)
	profile.LeadScore = score
	c.profile = profile
	c.persist(ctx, "user_context", func(ctx context.Context) error {
		return c.deps.Store.SetUserContext(ctx, c.sessionID, profile)
	})
	c.persist(ctx, "lead_score", func(ctx context.Context) error {
		return c.deps.Store.SetLeadScore(ctx, c.sessionID, score)
	})

	prev := c.stage
	next, convert := Next(prev, score)
	c.stage = next

	result := &TurnResult{
		UserMessage:   userMsg,
		PreviousStage: prev,
		Stage:         next,
		LeadScore:     score,
	}
	if convert {
		followUp := ScheduledMessage{
			Content: FollowUpText,
			Buttons: followUpButtons(c.cfg),
			Delay:   c.cfg.FollowUpDelay,
		}
		c.scheduleLocked(followUp)
		result.FollowUp = &followUp
	}
	transcript := append([]models.Message(nil), c.messages...)
	c.mu.Unlock()

	defer c.endTurn()

	metrics.ChatLeadScore.Observe(float64(score))
	c.logger.Info("turn scored", map[string]interface{}{
		"leadScore": score,
		"matched":   matched,
		"stage":     string(next),
	})

	if next != prev {
		metrics.ChatStageTransitions.WithLabelValues(string(prev), string(next)).Inc()
		c.track(ctx, analytics.Event{
			Name:       analytics.EventStageChanged,
			Properties: map[string]interface{}{"from": string(prev), "to": string(next), "leadScore": score},
		})
	}
	if convert {
		c.handoff(ctx, profile, next, transcript)
	}

	reply, buttons, source := c.reply(ctx, text, profile, history)
	result.Source = source
	metrics.ChatTurns.WithLabelValues(source).Inc()

	wait := c.cfg.TypingDelay - c.now().Sub(started)
	if wait < 0 {
		wait = 0
	}

	c.mu.Lock()
	for _, d := range c.chunker.Plan(reply, buttons) {
		msg := ScheduledMessage{Content: d.Content, Buttons: d.Buttons, Delay: wait + d.Offset}
		if c.scheduleLocked(msg) {
			result.Deliveries = append(result.Deliveries, msg)
		}
	}
	c.mu.Unlock()

	if c.deps.Turns != nil {
		c.deps.Turns.RecordTurn(ctx, c.now().Sub(started), source)
	}
	return result, nil
}

func (c *Controller) reply(ctx context.Context, userText string, profile models.UserProfile, history []models.Message) (string, []models.Button, string) {
	if c.deps.AI == nil {
		return fallback.Reply(userText), nil, SourceFallback
	}

	r, err := c.deps.AI.Generate(ctx, c.sessionID, userText, profile, history)
	switch {
	case err == nil && r.Success:
		return r.Text, nil, SourceAI
	case err == nil:
		return r.Text, nil, SourceAIFallback
	case errors.Is(err, ai.ErrEmptyReply):
		text, buttons := fallback.ConnectionTrouble()
		return text, buttons, SourceTrouble
	default:
		c.logger.Warn("using fallback reply", map[string]interface{}{"error": err.Error()})
		return fallback.Reply(userText), nil, SourceFallback
	}
}

func (c *Controller) handoff(ctx context.Context, profile models.UserProfile, stage models.Stage, messages []models.Message) {
	lead := models.LeadHandoff{
		SessionID:    c.sessionID,
		Stage:        stage,
		LeadScore:    profile.LeadScore,
		Breakdown:    scoring.Breakdown(profile),
		Profile:      profile,
		Transcript:   models.TranscriptFrom(messages, c.cfg.TranscriptLimit),
		MessageCount: len(messages),
		QualifiedAt:  c.now().UTC(),
	}

	c.track(ctx, analytics.Event{
		Name:       analytics.EventLeadQualified,
		Properties: map[string]interface{}{"leadScore": lead.LeadScore, "fleetSize": profile.FleetSize},
	})

	if c.deps.Leads == nil {
		metrics.LeadHandoffs.WithLabelValues("skipped").Inc()
		return
	}
	if err := c.deps.Leads.PublishLead(ctx, lead); err != nil {
		metrics.LeadHandoffs.WithLabelValues("failed").Inc()
		c.logger.Warn("lead handoff failed", map[string]interface{}{"leadScore": lead.LeadScore, "error": err.Error()})
		return
	}
	metrics.LeadHandoffs.WithLabelValues("published").Inc()
	c.logger.Info("lead handed off", map[string]interface{}{"leadScore": lead.LeadScore})
}

func (c *Controller) track(ctx context.Context, event analytics.Event) {
	if c.deps.Analytics == nil {
		return
	}
	event.SessionID = c.sessionID
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now().UTC()
	}
	c.deps.Analytics.Track(ctx, event)
}

func (c *Controller) endTurn() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// scheduleLocked returns false once the controller is closed.
func (c *Controller) scheduleLocked(msg ScheduledMessage) bool {
	if c.closed {
		return false
	}
	id := c.nextTimer
	c.nextTimer++
	c.timers[id] = c.deps.Scheduler.AfterFunc(msg.Delay, func() { c.deliver(id, msg) })
	return true
}

func (c *Controller) deliver(id int, msg ScheduledMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, id)
	if c.closed {
		return
	}

	score := c.profile.LeadScore
	meta := &models.MessageMetadata{Buttons: msg.Buttons, LeadScore: &score}
	c.appendLocked(context.Background(), models.NewMessage(models.MessageTypeBot, msg.Content, meta, c.now()))
}

// appendLocked keeps memory and the store in the same order.
func (c *Controller) appendLocked(ctx context.Context, msg models.Message) {
	c.messages = append(c.messages, msg)
	c.lastActivity = msg.Timestamp
	c.persist(ctx, "append", func(ctx context.Context) error {
		return c.deps.Store.AppendMessage(ctx, c.sessionID, msg)
	})
}

// persist writes under the visitor that opened the session, whichever
// request or timer triggers the write.
func (c *Controller) persist(ctx context.Context, op string, fn func(context.Context) error) {
	if c.owner != "" {
		ctx = store.WithOwner(ctx, c.owner)
	}
	if err := fn(ctx); err != nil {
		metrics.StoreErrors.WithLabelValues("flow", op).Inc()
		c.logger.Warn("conversation persistence failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
}

func (c *Controller) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight && len(c.timers) == 0 && c.lastActivity.Before(cutoff)
}

// Close stops pending deliveries. Later calls fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
