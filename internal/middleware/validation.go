package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTextLength caps an inbound webchat message in characters, matching
// Telegram's limit.
const MaxTextLength = 4096

// ValidateText validates an optional message text. A nil text is valid.
func ValidateText(text *string) error {
	if text == nil {
		return nil
	}
	if !utf8.ValidString(*text) {
		return errors.New("text must be valid UTF-8")
	}
	if utf8.RuneCountInString(*text) > MaxTextLength {
		return errors.New("text exceeds maximum length")
	}
	return nil
}

// ValidateConversationID validates a webchat conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}
