package crmcreate

import (
	"context"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/zoho"
	"fleet-assistant/internal/workers/leads"
	"fleet-assistant/pkg/registry"
)

// CRM is the subset of the Zoho client the worker calls.
type CRM interface {
	SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

type Output struct {
	CRMLeadID   string    `json:"crmLeadId"`
	CRMExisting bool      `json:"crmExisting"`
	CRMProvider string    `json:"crmProvider"`
	SyncedAt    time.Time `json:"crmSyncedAt"`
}

func Activity() registry.Activity {
	return leads.Activity(TaskType, "Create CRM Lead",
		"Finds the visitor in Zoho CRM by e-mail or creates a Website Chat lead.",
		[]string{"crmLeadId", "crmExisting", "crmProvider", "crmSyncedAt"},
		apperrors.ErrCodeCRMNotConfigured, apperrors.ErrCodeCRMAPIError)
}
