// Package leads holds the job plumbing shared by the lead-qualification
// process workers.
package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/validation"
	"fleet-assistant/internal/models"
	"fleet-assistant/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const handoffSchemaJSON = `{
	"type": "object",
	"required": ["sessionId", "leadScore", "profile"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"stage": {"type": "string"},
		"leadScore": {"type": "integer", "minimum": 0, "maximum": 100},
		"profile": {"type": "object"},
		"transcript": {"type": "array"}
	}
}`

var handoffSchema = validation.MustCompile("lead-handoff", handoffSchemaJSON)

// ProcessID is the BPMN process the lead workers serve.
const ProcessID = "lead-qualification"

// Activity fills in the registry fields every lead worker shares.
func Activity(taskType, displayName, description string, outputs []string, errorCodes ...apperrors.ErrorCode) registry.Activity {
	var input map[string]interface{}
	_ = json.Unmarshal([]byte(handoffSchemaJSON), &input)

	codes := []string{string(apperrors.ErrCodeInputParsingFailed), string(apperrors.ErrCodeValidationFailed)}
	for _, c := range errorCodes {
		codes = append(codes, string(c))
	}
	return registry.Activity{
		ID:          taskType,
		DisplayName: displayName,
		Description: description,
		Category:    "leads",
		Version:     "1.0.0",
		TaskType:    taskType,
		InputSchema: input,
		Outputs:     outputs,
		ErrorCodes:  codes,
		Timeout:     "30s",
		Retries:     3,
		Workflows:   []string{ProcessID},
	}
}

// ParseHandoff validates the job variables and decodes the lead handoff.
func ParseHandoff(job entities.Job) (models.LeadHandoff, error) {
	var lead models.LeadHandoff

	result, err := handoffSchema.ValidateBytes([]byte(job.GetVariables()))
	if err != nil {
		return lead, &apperrors.StandardError{
			Code:    apperrors.ErrCodeInputParsingFailed,
			Message: "Failed to parse job variables",
			Details: err.Error(),
		}
	}
	if !result.Valid {
		return lead, apperrors.NewValidationFailedError(
			fmt.Sprintf("Validation errors: %s", strings.Join(result.GetErrorMessages(), "; ")))
	}

	if err := job.GetVariablesAs(&lead); err != nil {
		return lead, &apperrors.StandardError{
			Code:    apperrors.ErrCodeInputParsingFailed,
			Message: "Failed to parse job variables",
			Details: err.Error(),
		}
	}
	return lead, nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		log.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	log.Info("job completed", map[string]interface{}{"jobKey": job.GetKey()})
}

// JobCode extracts the error code label used in worker metrics.
func JobCode(err error) string {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
