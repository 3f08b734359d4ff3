// Package survey handles the multi-step qualification survey.
package survey

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/chat/scoring"
	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/validation"
	"fleet-assistant/internal/models"

	"github.com/google/uuid"
)

var ErrUnknownStep = errors.New("survey: unknown step")

const insertResponseQuery = `INSERT INTO survey_responses
	(id, company_name, contact_name, email, phone, fleet_size, experience, challenges, interests, lead_score, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const confirmationSubject = "Thanks for telling us about your fleet"

type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

type Service struct {
	db        *sql.DB
	mailer    Mailer
	analytics analytics.Forwarder
	logger    logger.Logger
	now       func() time.Time
}

// NewService accepts a nil mailer or forwarder; those steps are skipped.
func NewService(db *sql.DB, mailer Mailer, forwarder analytics.Forwarder, log logger.Logger) *Service {
	return &Service{
		db:        db,
		mailer:    mailer,
		analytics: forwarder,
		logger:    log.WithFields(map[string]interface{}{"component": "survey"}),
		now:       time.Now,
	}
}

// ValidateStep checks one step of the form before the visitor moves on.
func (s *Service) ValidateStep(step string, payload []byte) (*validation.ValidationResult, error) {
	schema, ok := stepSchemas[step]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	res, err := schema.ValidateBytes(payload)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	return res, nil
}

// Submit validates, scores and stores a complete survey. The confirmation
// e-mail is best effort.
func (s *Service) Submit(ctx context.Context, payload []byte) (*models.SurveyResponse, error) {
	res, err := submissionSchema.ValidateBytes(payload)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	if !res.Valid {
		return nil, apperrors.NewValidationFailedError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var sub Submission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	resp := &models.SurveyResponse{
		ID:          uuid.New().String(),
		CompanyName: strings.TrimSpace(sub.Company.Name),
		ContactName: strings.TrimSpace(sub.Contact.Name),
		Email:       strings.ToLower(strings.TrimSpace(sub.Contact.Email)),
		Phone:       strings.TrimSpace(sub.Contact.Phone),
		FleetSize:   sub.Fleet.Size,
		Experience:  sub.Fleet.Experience,
		Challenges:  nonNil(sub.Challenges.Selected),
		Interests:   nonNil(sub.Challenges.Interests),
		SubmittedAt: s.now().UTC(),
	}
	resp.LeadScore = scoring.Score(resp.Profile())

	if err := s.insert(ctx, resp); err != nil {
		return nil, err
	}

	s.logger.Info("survey submitted", map[string]interface{}{
		"surveyId":  resp.ID,
		"fleetSize": resp.FleetSize,
		"leadScore": resp.LeadScore,
	})

	s.confirm(ctx, resp)
	if s.analytics != nil {
		s.analytics.Track(ctx, analytics.Event{
			Name:       analytics.EventSurveySubmitted,
			Properties: map[string]interface{}{"leadScore": resp.LeadScore, "fleetSize": resp.FleetSize},
			Timestamp:  resp.SubmittedAt,
		})
	}
	return resp, nil
}

func (s *Service) insert(ctx context.Context, resp *models.SurveyResponse) error {
	challenges, err := json.Marshal(resp.Challenges)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	interests, err := json.Marshal(resp.Interests)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, insertResponseQuery,
		resp.ID, resp.CompanyName, resp.ContactName, resp.Email, nullable(resp.Phone),
		resp.FleetSize, nullable(string(resp.Experience)), challenges, interests,
		resp.LeadScore, resp.SubmittedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *Service) confirm(ctx context.Context, resp *models.SurveyResponse) {
	if s.mailer == nil {
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nThanks for telling us about %s's fleet (%s). "+
		"Our team will review your answers and reach out shortly.\n\nThe Fleet Team",
		resp.ContactName, resp.CompanyName, resp.FleetSize)

	if _, err := s.mailer.SendText(ctx, []string{resp.Email}, confirmationSubject, body); err != nil {
		s.logger.Warn("survey confirmation e-mail failed", map[string]interface{}{
			"surveyId": resp.ID,
			"error":    err.Error(),
		})
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
