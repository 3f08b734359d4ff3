package ai

import "fleet-assistant/internal/models"

type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	SessionID           string             `json:"sessionId"`
	Message             string             `json:"message"`
	UserContext         models.UserProfile `json:"userContext"`
	ConversationHistory []HistoryTurn      `json:"conversationHistory"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Usage    *Usage `json:"usage,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Reply is what the controller displays. Success is false when the endpoint
// answered with its own fallback text.
type Reply struct {
	Text    string
	Success bool
	Usage   *Usage
}

func historyFrom(messages []models.Message, limit int) []HistoryTurn {
	lines := models.TranscriptFrom(messages, limit)
	turns := make([]HistoryTurn, 0, len(lines))
	for _, l := range lines {
		role := "user"
		if l.Role == models.MessageTypeBot {
			role = "assistant"
		}
		turns = append(turns, HistoryTurn{Role: role, Content: l.Content})
	}
	return turns
}
