package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/validation"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error *apperrors.StandardError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err *apperrors.StandardError) {
	writeJSON(w, status, errorResponse{Error: err})
}

// writeAppError picks the status from the error code.
func writeAppError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	writeError(w, statusFor(stdErr.Code), stdErr)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidRequest, apperrors.ErrCodeValidationFailed, apperrors.ErrCodeInputParsingFailed:
		return http.StatusBadRequest
	case apperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeTurnInProgress:
		return http.StatusConflict
	case apperrors.ErrCodeStoreUnavailable, apperrors.ErrCodeDatabaseConnectionFailed,
		apperrors.ErrCodeQueryExecutionFailed, apperrors.ErrCodeDatabaseInsertFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// readBody reads at most maxBodyBytes and validates the document.
func readBody(r *http.Request, schema *validation.Schema) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
	}
	if len(data) > maxBodyBytes {
		return nil, apperrors.NewInvalidRequestError("request body too large")
	}
	if schema == nil {
		return data, nil
	}

	res, err := schema.ValidateBytes(data)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("body is not valid JSON")
	}
	if !res.Valid {
		return nil, apperrors.NewValidationFailedError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return data, nil
}

func decodeBody(r *http.Request, schema *validation.Schema, out interface{}) error {
	data, err := readBody(r, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewInvalidRequestError(err.Error())
	}
	return nil
}
