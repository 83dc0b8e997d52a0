package model

import (
	"time"
)

// InboundEvent is one message received from a chat participant.
type InboundEvent struct {
	ConversationID string    `json:"conversation_id"`
	Channel        string    `json:"channel"`
	ReceivedAt     time.Time `json:"received_at"`

	// Text is nil when the message carried no text (photo, sticker, ...).
	Text *string `json:"text"`
}

// HasText reports whether the event carries a text payload.
func (e *InboundEvent) HasText() bool {
	return e.Text != nil
}

// TaskCreatedEvent is published after a task record has been saved.
type TaskCreatedEvent struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Task           TaskRecord `json:"task"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SendMessageRequest is the request body for a webchat message.
type SendMessageRequest struct {
	Text *string `json:"text"`
}

// SendMessageResponse carries the replies produced for a webchat message.
type SendMessageResponse struct {
	ConversationID string   `json:"conversation_id"`
	Replies        []string `json:"replies"`
}

// CreateConversationResponse is returned when a webchat conversation is opened.
type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}
