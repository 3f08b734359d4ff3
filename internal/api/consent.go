package api

import (
	"net/http"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"

	"github.com/gorilla/mux"
)

func (s *Server) getConsent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Consent.Get(r.Context(), mux.Vars(r)["visitorId"]))
}

func (s *Server) putConsent(w http.ResponseWriter, r *http.Request) {
	visitorID := mux.Vars(r)["visitorId"]

	var req consentRequest
	if err := decodeBody(r, consentSchema, &req); err != nil {
		writeAppError(w, err)
		return
	}

	prefs, err := s.deps.Consent.Save(r.Context(), visitorID, models.ConsentPreferences{
		Functional: req.Functional,
		Analytics:  req.Analytics,
		Marketing:  req.Marketing,
	})
	if err != nil {
		s.logger.Warn("consent save failed", map[string]interface{}{"visitorId": visitorID, "error": err})
		writeAppError(w, apperrors.NewStoreUnavailableError(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
