package notifysales

import (
	"context"
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
)

const TaskType = "lead-notify-sales"

// transcriptTail is how many transcript lines the sales e-mail quotes.
const transcriptTail = 12

type Handler struct {
	config       *Config
	mailer       Mailer
	sms          SMSSender
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

// NewHandler builds the worker. sms may be nil when texting is disabled.
func NewHandler(config *Config, mailer Mailer, sms SMSSender, log logger.Logger) *Handler {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.SMSThreshold <= 0 {
		config.SMSThreshold = DefaultSMSThreshold
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		mailer:       mailer,
		sms:          sms,
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

// Execute runs the notification without a job, for direct callers and tests.
func (h *Handler) Execute(ctx context.Context, lead *models.LeadHandoff) (*Output, error) {
	return h.execute(ctx, lead)
}

func (h *Handler) execute(ctx context.Context, lead *models.LeadHandoff) (*Output, error) {
	if lead == nil || lead.SessionID == "" {
		return nil, apperrors.NewValidationFailedError("sessionId is required")
	}

	subject, body := composeEmail(lead)
	messageID, err := h.mailer.SendText(ctx, h.config.SalesTo, subject, body)
	if err != nil {
		return nil, apperrors.NewNotificationSendFailedError("email", err)
	}

	output := &Output{
		SalesNotified:  true,
		EmailMessageID: messageID,
		NotifiedAt:     h.now().UTC(),
	}

	// The e-mail has gone out, so an SMS failure must not retry the job.
	if h.shouldText(lead) {
		smsID, err := h.sms.SendSMS(ctx, h.config.SalesPhone, composeSMS(lead))
		if err != nil {
			h.logger.Warn("sales sms failed", map[string]interface{}{
				"sessionId": lead.SessionID,
				"error":     err.Error(),
			})
		} else {
			output.SMSSent = true
			output.SMSMessageID = smsID
		}
	}

	h.logger.Info("sales notified", map[string]interface{}{
		"sessionId": lead.SessionID,
		"leadScore": lead.LeadScore,
		"smsSent":   output.SMSSent,
	})
	return output, nil
}

func (h *Handler) shouldText(lead *models.LeadHandoff) bool {
	return h.config.SMSEnabled && h.sms != nil && h.config.SalesPhone != "" &&
		lead.LeadScore >= h.config.SMSThreshold
}

func displayName(p models.UserProfile) string {
	if p.Name != "" {
		return p.Name
	}
	return "Website visitor"
}

func composeEmail(lead *models.LeadHandoff) (string, string) {
	p := lead.Profile
	subject := fmt.Sprintf("Qualified fleet lead (score %d): %s", lead.LeadScore, displayName(p))

	var b strings.Builder
	fmt.Fprintf(&b, "A website chat visitor reached the %s stage.\n\n", lead.Stage)
	fmt.Fprintf(&b, "Session:     %s\n", lead.SessionID)
	fmt.Fprintf(&b, "Lead score:  %d (fleet %d, experience %d, challenges %d, interests %d)\n",
		lead.LeadScore, lead.Breakdown.FleetSize, lead.Breakdown.Experience,
		lead.Breakdown.Challenges, lead.Breakdown.Interests)
	fmt.Fprintf(&b, "Name:        %s\n", displayName(p))
	if p.Email != "" {
		fmt.Fprintf(&b, "Email:       %s\n", p.Email)
	}
	if p.FleetSize != "" {
		fmt.Fprintf(&b, "Fleet size:  %s\n", p.FleetSize)
	}
	if p.Experience != "" {
		fmt.Fprintf(&b, "Experience:  %s\n", p.Experience)
	}
	if len(p.Challenges) > 0 {
		fmt.Fprintf(&b, "Challenges:  %s\n", strings.Join(p.Challenges, ", "))
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "Interests:   %s\n", strings.Join(p.Interests, ", "))
	}

	lines := lead.Transcript
	if len(lines) > transcriptTail {
		lines = lines[len(lines)-transcriptTail:]
	}
	if len(lines) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "  [%s] %s\n", l.Role, l.Content)
		}
	}
	return subject, b.String()
}

func composeSMS(lead *models.LeadHandoff) string {
	msg := fmt.Sprintf("Hot fleet lead, score %d: %s", lead.LeadScore, displayName(lead.Profile))
	if lead.Profile.FleetSize != "" {
		msg += ", " + lead.Profile.FleetSize
	}
	return msg + ". Session " + lead.SessionID
}
