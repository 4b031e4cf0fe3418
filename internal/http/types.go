package http

import (
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	"github.com/fyrsmithlabs/veritas/internal/lang"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	Provider     string `json:"provider,omitempty"`
	ChatSessions int    `json:"chat_sessions"`
}

// ClaimRequest is the body for the text analysis endpoints.
type ClaimRequest struct {
	Text     string        `json:"text"`
	Language string        `json:"language,omitempty"`
	Location *geo.Location `json:"location,omitempty"`
}

// DeepfakeRequest is the JSON body for POST /api/v1/deepfake. Image holds
// base64 data; a data URL is accepted too.
type DeepfakeRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Note     string `json:"note,omitempty"`
	Language string `json:"language,omitempty"`
}

// LanguageRequest is the body for session creation and language changes.
type LanguageRequest struct {
	Language string `json:"language,omitempty"`
}

// SessionResponse describes a chat session.
type SessionResponse struct {
	ID       string         `json:"id"`
	Language lang.Language  `json:"language"`
	Messages []chat.Message `json:"messages"`
}

// SendRequest is the body for POST /api/v1/chat/sessions/:id/messages.
type SendRequest struct {
	Text string `json:"text"`
}

// SendResponse carries the reply and the full conversation. Failed is set
// when the reply is the placeholder for a turn the model could not answer.
type SendResponse struct {
	Message  chat.Message   `json:"message"`
	Messages []chat.Message `json:"messages"`
	Failed   bool           `json:"failed,omitempty"`
}
