// internal/models/conversation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeBot    MessageType = "bot"
	MessageTypeAction MessageType = "action"
)

// Button is a quick-reply or link attached to a bot message.
type Button struct {
	Text   string `json:"text"`
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
}

// Button actions understood by the action handler.
const (
	ActionCalendar = "calendar"
	ActionBeta     = "beta"
	ActionFeatures = "features"
)

type MessageMetadata struct {
	Buttons   []Button `json:"buttons,omitempty"`
	LeadScore *int     `json:"leadScore,omitempty"`
}

// Message is immutable once appended to a conversation.
type Message struct {
	ID        string           `json:"id"`
	Type      MessageType      `json:"type"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

func NewMessage(msgType MessageType, content string, meta *MessageMetadata, at time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Content:   content,
		Timestamp: at.UTC(),
		Metadata:  meta,
	}
}

// Buttons returns the attached buttons, or nil.
func (m Message) Buttons() []Button {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.Buttons
}

type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceExpert       Experience = "expert"
)

// Fleet size bands, largest first.
const (
	FleetSize50Plus = "50+ vehicles"
	FleetSize20To50 = "20-50 vehicles"
	FleetSize10To20 = "10-20 vehicles"
	FleetSize5To10  = "5-10 vehicles"
)

const (
	ChallengeFuelCosts    = "fuel-costs"
	ChallengeMaintenance  = "maintenance"
	ChallengeTracking     = "tracking"
	ChallengeCompliance   = "compliance"
	ChallengeDriverSafety = "driver-safety"
)

const (
	InterestDemo    = "demo"
	InterestBeta    = "beta"
	InterestPricing = "pricing"
)

// UserProfile is what the conversation has learned about the visitor.
type UserProfile struct {
	FleetSize  string     `json:"fleetSize,omitempty"`
	Experience Experience `json:"experience,omitempty"`
	Challenges []string   `json:"challenges"`
	Interests  []string   `json:"interests"`
	LeadScore  int        `json:"leadScore"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
}

func (p UserProfile) Clone() UserProfile {
	out := p
	out.Challenges = cloneStrings(p.Challenges)
	out.Interests = cloneStrings(p.Interests)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Merge overlays the non-empty fields of partial onto p.
func (p *UserProfile) Merge(partial UserProfile) {
	if partial.FleetSize != "" {
		p.FleetSize = partial.FleetSize
	}
	if partial.Experience != "" {
		p.Experience = partial.Experience
	}
	if partial.Challenges != nil {
		p.Challenges = cloneStrings(partial.Challenges)
	}
	if partial.Interests != nil {
		p.Interests = cloneStrings(partial.Interests)
	}
	if partial.LeadScore != 0 {
		p.LeadScore = partial.LeadScore
	}
	if partial.Name != "" {
		p.Name = partial.Name
	}
	if partial.Email != "" {
		p.Email = partial.Email
	}
}

// HasInterest reports whether tag is in the interest set.
func (p UserProfile) HasInterest(tag string) bool {
	for _, i := range p.Interests {
		if i == tag {
			return true
		}
	}
	return false
}

// ConversationRecord is the persisted unit, one per session.
type ConversationRecord struct {
	SessionID    string      `json:"sessionId"`
	Messages     []Message   `json:"messages"`
	UserContext  UserProfile `json:"userContext"`
	LeadScore    int         `json:"leadScore"`
	LastActivity time.Time   `json:"lastActivity"`
	IsActive     bool        `json:"isActive"`
}

func NewConversationRecord(sessionID string, at time.Time) *ConversationRecord {
	return &ConversationRecord{
		SessionID:    sessionID,
		Messages:     []Message{},
		UserContext:  UserProfile{Challenges: []string{}, Interests: []string{}},
		LastActivity: at.UTC(),
		IsActive:     true,
	}
}

func (r *ConversationRecord) Clone() *ConversationRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Messages != nil {
		out.Messages = make([]Message, len(r.Messages))
		copy(out.Messages, r.Messages)
	}
	out.UserContext = r.UserContext.Clone()
	return &out
}

// Stage is the coarse conversation phase.
type Stage string

const (
	StageGreeting      Stage = "greeting"
	StageDiscovery     Stage = "discovery"
	StageQualification Stage = "qualification"
	StageConversion    Stage = "conversion"
)
