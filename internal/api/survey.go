package api

import (
	"errors"
	"net/http"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/survey"

	"github.com/gorilla/mux"
)

func (s *Server) surveysUnavailable(w http.ResponseWriter) bool {
	if s.deps.Surveys != nil {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, apperrors.NewStoreUnavailableError(errors.New("survey storage is disabled")))
	return true
}

func (s *Server) submitSurvey(w http.ResponseWriter, r *http.Request) {
	if s.surveysUnavailable(w) {
		return
	}

	payload, err := readBody(r, nil)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := s.deps.Surveys.Submit(r.Context(), payload)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) validateSurveyStep(w http.ResponseWriter, r *http.Request) {
	if s.surveysUnavailable(w) {
		return
	}

	payload, err := readBody(r, nil)
	if err != nil {
		writeAppError(w, err)
		return
	}

	step := mux.Vars(r)["step"]
	res, err := s.deps.Surveys.ValidateStep(step, payload)
	if errors.Is(err, survey.ErrUnknownStep) {
		writeError(w, http.StatusNotFound, apperrors.NewInvalidRequestError(err.Error()))
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
