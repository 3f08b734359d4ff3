package camunda

import (
	"context"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"
)

// DefaultLeadProcessID is the BPMN process started for qualified leads.
const DefaultLeadProcessID = "lead-qualification"

type createInstanceFunc func(ctx context.Context, processID string, variables interface{}) (int64, error)

// LeadProcessStarter starts one lead-qualification process instance per handoff.
type LeadProcessStarter struct {
	client    *Client
	processID string
	create    createInstanceFunc
	logger    logger.Logger
}

func NewLeadProcessStarter(client *Client, processID string, log logger.Logger) *LeadProcessStarter {
	if processID == "" {
		processID = DefaultLeadProcessID
	}
	s := &LeadProcessStarter{
		client:    client,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"processId": processID}),
	}
	s.create = s.createInstance
	return s
}

// PublishLead creates a process instance carrying the handoff as variables.
func (s *LeadProcessStarter) PublishLead(ctx context.Context, lead models.LeadHandoff) error {
	result, err := s.client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return s.create(ctx, s.processID, lead)
	}, "create-instance")
	if err != nil {
		s.logger.Error("failed to start lead process", map[string]interface{}{
			"sessionId": lead.SessionID,
			"leadScore": lead.LeadScore,
			"error":     err,
		})
		return apperrors.NewLeadHandoffFailedError(err)
	}

	s.logger.Info("lead process started", map[string]interface{}{
		"sessionId":          lead.SessionID,
		"leadScore":          lead.LeadScore,
		"processInstanceKey": result,
	})
	return nil
}

func (s *LeadProcessStarter) createInstance(ctx context.Context, processID string, variables interface{}) (int64, error) {
	cmd, err := s.client.GetClient().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromObject(variables)
	if err != nil {
		return 0, err
	}

	if s.client.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.client.config.RequestTimeout)
		defer cancel()
	}

	resp, err := cmd.Send(ctx)
	if err != nil {
		return 0, err
	}
	return resp.GetProcessInstanceKey(), nil
}
