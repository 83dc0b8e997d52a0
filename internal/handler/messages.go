package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/internal/middleware"
	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/internal/service"
	"github.com/capitalize-ai/taskform-bot/internal/transport"
	"github.com/capitalize-ai/taskform-bot/internal/transport/webchat"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

// Dispatcher handles inbound chat events.
type Dispatcher interface {
	Handle(ctx context.Context, event *model.InboundEvent) error
}

// MessageHandler exposes the webchat channel over HTTP.
type MessageHandler struct {
	dispatcher Dispatcher
	outbox     *webchat.Outbox
	logger     *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(dispatcher Dispatcher, outbox *webchat.Outbox, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		dispatcher: dispatcher,
		outbox:     outbox,
		logger:     log,
	}
}

// Create handles POST /api/v1/conversations
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, &model.CreateConversationResponse{
		ConversationID: h.outbox.NewConversation(),
	})
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	localID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(localID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conversationID := transport.Identity(webchat.Name, localID)
	replies, err := h.outbox.Exchange(localID, func() error {
		return h.dispatcher.Handle(ctx, &model.InboundEvent{
			ConversationID: conversationID,
			Channel:        webchat.Name,
			Text:           req.Text,
			ReceivedAt:     time.Now(),
		})
	})
	if err != nil {
		var sendErr *service.SendError
		if errors.As(err, &sendErr) {
			h.logger.Warn("webchat delivery failed", zap.String("conversation_id", conversationID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to deliver replies")
			return
		}
		h.logger.Error("failed to handle message", zap.String("conversation_id", conversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to handle message")
		return
	}

	writeJSON(w, http.StatusOK, &model.SendMessageResponse{
		ConversationID: localID,
		Replies:        replies,
	})
}
