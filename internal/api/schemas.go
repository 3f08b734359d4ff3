package api

import "fleet-assistant/internal/common/validation"

var (
	messageSchema = validation.MustCompile("chat-message", `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": "string", "minLength": 1, "maxLength": 4000}
		}
	}`)

	actionSchema = validation.MustCompile("chat-action", `{
		"type": "object",
		"required": ["action"],
		"properties": {
			"action": {"type": "string", "minLength": 1, "maxLength": 64},
			"url": {"type": "string", "maxLength": 2048}
		}
	}`)

	consentSchema = validation.MustCompile("consent", `{
		"type": "object",
		"properties": {
			"functional": {"type": "boolean"},
			"analytics": {"type": "boolean"},
			"marketing": {"type": "boolean"}
		}
	}`)
)

type messageRequest struct {
	Message string `json:"message"`
}

type actionRequest struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

type consentRequest struct {
	Functional bool `json:"functional"`
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
}
