package indextranscript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
	"fleet-assistant/internal/workers/leads"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const TaskType = "lead-index-transcript"

type Handler struct {
	config       *Config
	client       *elasticsearch.Client
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	if config.Index == "" {
		config.Index = DefaultIndex
	}
	if config.Timeout <= 0 {
		config.Timeout = LoadConfig().Timeout
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	lead, err := leads.ParseHandoff(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &lead)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	leads.CompleteJob(ctx, client, job, output, h.logger)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, leads.JobCode(err)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, lead *models.LeadHandoff) (*Output, error) {
	return h.execute(ctx, lead)
}

// execute writes the document under the session id, so a retried job
// overwrites rather than duplicates.
func (h *Handler) execute(ctx context.Context, lead *models.LeadHandoff) (*Output, error) {
	if lead == nil || lead.SessionID == "" {
		return nil, apperrors.NewValidationFailedError("sessionId is required")
	}

	body, err := json.Marshal(h.buildDocument(lead))
	if err != nil {
		return nil, apperrors.NewIndexFailedError(h.config.Index, err)
	}

	res, err := h.client.Index(
		h.config.Index,
		bytes.NewReader(body),
		h.client.Index.WithDocumentID(lead.SessionID),
		h.client.Index.WithContext(ctx),
	)
	if err != nil {
		return nil, apperrors.NewIndexFailedError(h.config.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		stdErr := apperrors.NewIndexFailedError(h.config.Index, fmt.Errorf("elasticsearch: %s", res.Status()))
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != 429 {
			stdErr.Retryable = false
		}
		return nil, stdErr
	}

	var indexResp struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexResp); err != nil {
		return nil, apperrors.NewIndexFailedError(h.config.Index, fmt.Errorf("decode response: %w", err))
	}

	h.logger.Info("transcript indexed", map[string]interface{}{
		"sessionId": lead.SessionID,
		"index":     h.config.Index,
		"result":    indexResp.Result,
		"lines":     len(lead.Transcript),
	})

	return &Output{
		TranscriptIndexed: true,
		TranscriptIndex:   h.config.Index,
		TranscriptDocID:   indexResp.ID,
		IndexResult:       indexResp.Result,
	}, nil
}

func (h *Handler) buildDocument(lead *models.LeadHandoff) Document {
	var text strings.Builder
	for i, line := range lead.Transcript {
		if i > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(line.Content)
	}

	transcript := lead.Transcript
	if transcript == nil {
		transcript = []models.TranscriptLine{}
	}

	return Document{
		SessionID:    lead.SessionID,
		Stage:        lead.Stage,
		LeadScore:    lead.LeadScore,
		Breakdown:    lead.Breakdown,
		FleetSize:    lead.Profile.FleetSize,
		Experience:   lead.Profile.Experience,
		Challenges:   nonNil(lead.Profile.Challenges),
		Interests:    nonNil(lead.Profile.Interests),
		Transcript:   transcript,
		Text:         text.String(),
		MessageCount: lead.MessageCount,
		QualifiedAt:  lead.QualifiedAt,
		IndexedAt:    h.now().UTC(),
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
