package api

import (
	"errors"
	"net/http"

	"fleet-assistant/internal/chat/flow"
	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"

	"github.com/gorilla/mux"
)

type conversationResponse struct {
	SessionID string             `json:"sessionId"`
	Created   bool               `json:"created"`
	Stage     models.Stage       `json:"stage"`
	LeadScore int                `json:"leadScore"`
	Profile   models.UserProfile `json:"profile"`
	Messages  []models.Message   `json:"messages"`
}

type deliveryResponse struct {
	Content string          `json:"content"`
	Buttons []models.Button `json:"buttons,omitempty"`
	DelayMs int64           `json:"delayMs"`
}

type turnResponse struct {
	SessionID     string             `json:"sessionId"`
	UserMessage   models.Message     `json:"userMessage"`
	PreviousStage models.Stage       `json:"previousStage"`
	Stage         models.Stage       `json:"stage"`
	LeadScore     int                `json:"leadScore"`
	Source        string             `json:"source"`
	Deliveries    []deliveryResponse `json:"deliveries"`
	FollowUp      *deliveryResponse  `json:"followUp,omitempty"`
}

type actionResponse struct {
	Action  string          `json:"action"`
	OpenURL string          `json:"openUrl,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Ignored bool            `json:"ignored"`
}

func toConversation(state flow.State, created bool) conversationResponse {
	return conversationResponse{
		SessionID: state.SessionID,
		Created:   created,
		Stage:     state.Stage,
		LeadScore: state.Profile.LeadScore,
		Profile:   state.Profile,
		Messages:  state.Messages,
	}
}

func toDelivery(m flow.ScheduledMessage) deliveryResponse {
	return deliveryResponse{Content: m.Content, Buttons: m.Buttons, DelayMs: m.Delay.Milliseconds()}
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	id := s.deps.Sessions.GetOrCreateSessionID(r.Context(), r.Header.Get(HeaderTabID))
	c, created := s.deps.Conversations.Open(r.Context(), id)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toConversation(c.State(), created))
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r, mux.Vars(r)["sessionId"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toConversation(c.State(), false))
}

// lookup resolves an existing conversation or writes the error response.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, sessionID string) (*flow.Controller, bool) {
	c, err := s.deps.Conversations.Lookup(r.Context(), sessionID)
	switch {
	case errors.Is(err, flow.ErrSessionNotFound):
		writeAppError(w, apperrors.NewSessionNotFoundError(sessionID))
		return nil, false
	case err != nil:
		writeAppError(w, apperrors.NewStoreUnavailableError(err))
		return nil, false
	}
	return c, true
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req messageRequest
	if err := decodeBody(r, messageSchema, &req); err != nil {
		writeAppError(w, err)
		return
	}

	c, ok := s.lookup(w, r, sessionID)
	if !ok {
		return
	}
	result, err := c.SendMessage(r.Context(), req.Message)
	if err != nil {
		writeAppError(w, flowError(sessionID, err))
		return
	}

	resp := turnResponse{
		SessionID:     sessionID,
		UserMessage:   result.UserMessage,
		PreviousStage: result.PreviousStage,
		Stage:         result.Stage,
		LeadScore:     result.LeadScore,
		Source:        result.Source,
		Deliveries:    make([]deliveryResponse, 0, len(result.Deliveries)),
	}
	for _, d := range result.Deliveries {
		resp.Deliveries = append(resp.Deliveries, toDelivery(d))
	}
	if result.FollowUp != nil {
		f := toDelivery(*result.FollowUp)
		resp.FollowUp = &f
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req actionRequest
	if err := decodeBody(r, actionSchema, &req); err != nil {
		writeAppError(w, err)
		return
	}

	c, ok := s.lookup(w, r, sessionID)
	if !ok {
		return
	}
	result, err := c.HandleAction(r.Context(), req.Action, req.URL)
	if err != nil {
		writeAppError(w, flowError(sessionID, err))
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		Action:  result.Action,
		OpenURL: result.OpenURL,
		Message: result.Message,
		Ignored: result.Ignored,
	})
}

func flowError(sessionID string, err error) error {
	switch {
	case errors.Is(err, flow.ErrEmptyMessage):
		return apperrors.NewInvalidRequestError("message is empty")
	case errors.Is(err, flow.ErrTurnInProgress):
		return apperrors.NewTurnInProgressError(sessionID)
	case errors.Is(err, flow.ErrClosed):
		return apperrors.NewSessionNotFoundError(sessionID)
	default:
		return err
	}
}
