package crmcreate

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/common/zoho"
	"fleet-assistant/internal/models"
	"fleet-assistant/internal/workers/leads"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "lead-crm-create"

const crmProvider = "zoho"

type Handler struct {
	config       *Config
	crm          CRM
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

// NewHandler builds the worker. A nil crm fails every job with CRM_NOT_CONFIGURED.
func NewHandler(config *Config, crm CRM, log logger.Logger) *Handler {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		crm:          crm,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
	}
}

// NewZohoCRM returns the Zoho client, or nil when credentials are missing.
func NewZohoCRM(config *Config) CRM {
	if !config.Configured() {
		return nil
	}
	return zoho.NewCRMClient(config.ZohoAPIKey, config.ZohoOAuthToken, config.ZohoBaseURL, config.Timeout)
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

func (h *Handler) execute(ctx context.Context, lead *models.LeadHandoff) (*Output, error) {
	if lead == nil || lead.SessionID == "" {
		return nil, apperrors.NewValidationFailedError("sessionId is required")
	}
	if h.crm == nil {
		return nil, &apperrors.StandardError{
			Code:      apperrors.ErrCodeCRMNotConfigured,
			Message:   "Zoho CRM client not configured",
			Details:   "Missing API key or OAuth token",
			Retryable: false,
			Timestamp: h.now().UTC(),
		}
	}

	if email := lead.Profile.Email; email != "" {
		existing, err := h.crm.SearchLeads(ctx, email)
		if err != nil {
			h.logger.Warn("failed to search for existing lead", map[string]interface{}{
				"sessionId": lead.SessionID,
				"error":     err.Error(),
			})
		} else if len(existing) > 0 {
			h.logger.Info("lead already exists in CRM", map[string]interface{}{
				"sessionId": lead.SessionID,
				"crmLeadId": existing[0].ID,
			})
			return &Output{
				CRMLeadID:   existing[0].ID,
				CRMExisting: true,
				CRMProvider: crmProvider,
				SyncedAt:    h.now().UTC(),
			}, nil
		}
	}

	id, err := h.crm.CreateLead(ctx, toZohoLead(lead))
	if err != nil {
		return nil, &apperrors.StandardError{
			Code:      apperrors.ErrCodeCRMAPIError,
			Message:   "Failed to create CRM lead",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: h.now().UTC(),
		}
	}

	h.logger.Info("CRM lead created", map[string]interface{}{
		"sessionId": lead.SessionID,
		"crmLeadId": id,
		"leadScore": lead.LeadScore,
	})

	return &Output{
		CRMLeadID:   id,
		CRMProvider: crmProvider,
		SyncedAt:    h.now().UTC(),
	}, nil
}

func toZohoLead(lead *models.LeadHandoff) *zoho.Lead {
	p := lead.Profile
	first, last := splitName(p.Name)

	company := "Unknown fleet operator"
	if p.FleetSize != "" {
		company = fmt.Sprintf("Fleet operator (%s)", p.FleetSize)
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Website chat session %s, lead score %d.", lead.SessionID, lead.LeadScore)
	if p.Experience != "" {
		fmt.Fprintf(&desc, " Experience: %s.", p.Experience)
	}
	if len(p.Challenges) > 0 {
		fmt.Fprintf(&desc, " Challenges: %s.", strings.Join(p.Challenges, ", "))
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&desc, " Interests: %s.", strings.Join(p.Interests, ", "))
	}

	return &zoho.Lead{
		Email:       p.Email,
		FirstName:   first,
		LastName:    last,
		Company:     company,
		Source:      zoho.LeadSourceWebsiteChat,
		Description: desc.String(),
	}
}

// splitName puts everything before the last word into the first name.
// Zoho requires Last_Name, so an empty name becomes "Website Visitor".
func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", "Website Visitor"
	case 1:
		return "", fields[0]
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}
