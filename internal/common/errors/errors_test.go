package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "notification failure is retried",
			err:         NewNotificationSendFailedError("email", fmt.Errorf("throttled")),
			wantCode:    "NOTIFICATION_SEND_FAILED",
			wantRetries: 3,
		},
		{
			name:        "validation failure is thrown",
			err:         NewValidationFailedError("leadScore missing"),
			wantCode:    "VALIDATION_FAILED",
			wantRetries: 0,
		},
		{
			name:        "unmapped code passes through",
			err:         NewTurnInProgressError("session_1"),
			wantCode:    "TURN_IN_PROGRESS",
			wantRetries: 0,
		},
		{
			name:        "non-retryable override wins",
			err:         &StandardError{Code: ErrCodeCRMAPIError, Message: "bad lead", Retryable: false},
			wantCode:    "CRM_API_ERROR",
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.wantCode, vars["errorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeAIReplyTimeout:         "AI",
		ErrCodeStoreCorrupt:           "STORAGE",
		ErrCodeQueryExecutionFailed:   "STORAGE",
		ErrCodeIndexFailed:            "SEARCH",
		ErrCodeNotificationSendFailed: "NOTIFICATION",
		ErrCodeCRMAPIError:            "LEADS",
		ErrCodeLeadHandoffFailed:      "LEADS",
		ErrCodeInvalidRequest:         "VALIDATION",
		ErrCodeTurnInProgress:         "CONVERSATION",
		ErrorCode("SOMETHING_ELSE"):   "OTHER",
	}

	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestAsStandardError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("saving turn: %w", NewStoreUnavailableError(fmt.Errorf("dial tcp")))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeStoreUnavailable, stdErr.Code)
	assert.True(t, IsRetryableErrorCode(stdErr.Code))

	_, ok = AsStandardError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestNormalize_PlainError(t *testing.T) {
	stdErr := Normalize(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), stdErr.Code)
	assert.Equal(t, "unexpected", stdErr.Details)
	assert.False(t, stdErr.Retryable)
}
