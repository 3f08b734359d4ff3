// internal/models/lead.go
package models

import "time"

// ScoreBreakdown lists each component's contribution to a lead score.
type ScoreBreakdown struct {
	FleetSize  int `json:"fleetSize"`
	Experience int `json:"experience"`
	Challenges int `json:"challenges"`
	Interests  int `json:"interests"`
	Total      int `json:"total"`
}

type TranscriptLine struct {
	Role      MessageType `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// LeadHandoff is the variable set handed to the lead-qualification process.
type LeadHandoff struct {
	SessionID    string           `json:"sessionId"`
	Stage        Stage            `json:"stage"`
	LeadScore    int              `json:"leadScore"`
	Breakdown    ScoreBreakdown   `json:"scoreBreakdown"`
	Profile      UserProfile      `json:"profile"`
	Transcript   []TranscriptLine `json:"transcript"`
	MessageCount int              `json:"messageCount"`
	QualifiedAt  time.Time        `json:"qualifiedAt"`
}

// TranscriptFrom keeps the last limit user and bot messages.
func TranscriptFrom(messages []Message, limit int) []TranscriptLine {
	lines := make([]TranscriptLine, 0, len(messages))
	for _, m := range messages {
		if m.Type == MessageTypeAction {
			continue
		}
		lines = append(lines, TranscriptLine{Role: m.Type, Content: m.Content, Timestamp: m.Timestamp})
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}
