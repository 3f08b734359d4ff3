package leads

import (
	"encoding/json"
	"testing"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                2251799813685300,
		Type:               "lead-notify-sales",
		ProcessInstanceKey: 2251799813685249,
		BpmnProcessId:      "lead-qualification",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          variables,
	}}
}

func TestParseHandoff(t *testing.T) {
	lead := models.LeadHandoff{
		SessionID: "session_1",
		Stage:     models.StageConversion,
		LeadScore: 75,
		Profile:   models.UserProfile{FleetSize: models.FleetSize50Plus, Challenges: []string{}, Interests: []string{}},
	}
	vars, err := json.Marshal(lead)
	require.NoError(t, err)

	got, err := ParseHandoff(createMockJob(string(vars)))

	require.NoError(t, err)
	assert.Equal(t, "session_1", got.SessionID)
	assert.Equal(t, 75, got.LeadScore)
	assert.Equal(t, models.FleetSize50Plus, got.Profile.FleetSize)
}

func TestParseHandoff_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		vars     string
		wantCode apperrors.ErrorCode
	}{
		{"not json", `{`, apperrors.ErrCodeInputParsingFailed},
		{"missing session", `{"leadScore": 40, "profile": {}}`, apperrors.ErrCodeValidationFailed},
		{"score out of range", `{"sessionId": "s", "leadScore": 140, "profile": {}}`, apperrors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHandoff(createMockJob(tt.vars))
			assert.Equal(t, string(tt.wantCode), JobCode(err))
		})
	}
}

func TestActivity(t *testing.T) {
	a := Activity("lead-crm-create", "Create CRM Lead", "creates the lead", []string{"crmLeadId"},
		apperrors.ErrCodeCRMAPIError)

	assert.Equal(t, "lead-crm-create", a.ID)
	assert.Equal(t, a.ID, a.TaskType)
	assert.Equal(t, []string{ProcessID}, a.Workflows)
	assert.Equal(t, []string{"INPUT_PARSING_FAILED", "VALIDATION_FAILED", "CRM_API_ERROR"}, a.ErrorCodes)
	assert.Equal(t, []interface{}{"sessionId", "leadScore", "profile"}, a.InputSchema["required"])
}
