package indextranscript

import (
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"
	"fleet-assistant/internal/workers/leads"
	"fleet-assistant/pkg/registry"
)

// Document is the indexed form of a qualified conversation.
type Document struct {
	SessionID    string                  `json:"sessionId"`
	Stage        models.Stage            `json:"stage"`
	LeadScore    int                     `json:"leadScore"`
	Breakdown    models.ScoreBreakdown   `json:"scoreBreakdown"`
	FleetSize    string                  `json:"fleetSize,omitempty"`
	Experience   models.Experience       `json:"experience,omitempty"`
	Challenges   []string                `json:"challenges"`
	Interests    []string                `json:"interests"`
	Transcript   []models.TranscriptLine `json:"transcript"`
	Text         string                  `json:"text"`
	MessageCount int                     `json:"messageCount"`
	QualifiedAt  time.Time               `json:"qualifiedAt"`
	IndexedAt    time.Time               `json:"indexedAt"`
}

type Output struct {
	TranscriptIndexed bool   `json:"transcriptIndexed"`
	TranscriptIndex   string `json:"transcriptIndex"`
	TranscriptDocID   string `json:"transcriptDocId"`
	IndexResult       string `json:"transcriptIndexResult"`
}

func Activity() registry.Activity {
	return leads.Activity(TaskType, "Index Transcript",
		"Indexes the qualified conversation transcript into Elasticsearch.",
		[]string{"transcriptIndexed", "transcriptIndex", "transcriptDocId", "transcriptIndexResult"},
		apperrors.ErrCodeIndexFailed)
}
