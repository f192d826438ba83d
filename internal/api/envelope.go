package api

import (
	"errors"
	"strings"
)

var (
	ErrMissingSessionID   = errors.New("sessionId is required")
	ErrMissingMessageText = errors.New("message.text is required")
)

// Envelope is the inbound request body for the message endpoint.
type Envelope struct {
	SessionID           string            `json:"sessionId"`
	Message             EnvelopeMessage   `json:"message"`
	ConversationHistory []EnvelopeMessage `json:"conversationHistory,omitempty"`
	Metadata            *EnvelopeMetadata `json:"metadata,omitempty"`
}

type EnvelopeMessage struct {
	Sender    string  `json:"sender"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

type EnvelopeMetadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Validate checks the required fields. Conversation history and metadata are
// optional passthrough data.
func (e *Envelope) Validate() error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrMissingSessionID
	}
	if strings.TrimSpace(e.Message.Text) == "" {
		return ErrMissingMessageText
	}
	return nil
}

// EndRequest is the inbound body for the end-engagement endpoint.
type EndRequest struct {
	SessionID string `json:"sessionId"`
}

func (e *EndRequest) Validate() error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrMissingSessionID
	}
	return nil
}

// MessageResponse is the success payload for a processed inbound message.
type MessageResponse struct {
	Status       string `json:"status"`
	Reply        string `json:"reply"`
	ScamDetected bool   `json:"scamDetected"`
}

// ErrorResponse is the error payload shape for every failure code.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
