package notifysales

import (
	"context"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/workers/leads"
	"fleet-assistant/pkg/registry"
)

// Mailer sends plain text e-mail.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Output struct {
	SalesNotified  bool      `json:"salesNotified"`
	EmailMessageID string    `json:"emailMessageId,omitempty"`
	SMSSent        bool      `json:"smsSent"`
	SMSMessageID   string    `json:"smsMessageId,omitempty"`
	NotifiedAt     time.Time `json:"notifiedAt"`
}

func Activity() registry.Activity {
	return leads.Activity(TaskType, "Notify Sales",
		"E-mails the sales inbox about a qualified lead and texts hot leads.",
		[]string{"salesNotified", "emailMessageId", "smsSent", "smsMessageId", "notifiedAt"},
		apperrors.ErrCodeNotificationSendFailed)
}
