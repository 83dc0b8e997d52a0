// Package service wires inbound chat events to the dialogue engine, the
// session store and the task store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/internal/dialogue"
	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/internal/session"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
	"github.com/capitalize-ai/taskform-bot/pkg/metrics"
	"github.com/capitalize-ai/taskform-bot/pkg/tracing"
)

// ErrMissingConversation is returned for events without a conversation ID.
var ErrMissingConversation = errors.New("event has no conversation id")

// Sender delivers a text message to a conversation.
type Sender interface {
	Send(ctx context.Context, conversationID, text string) error
}

// TaskStore persists completed task records.
type TaskStore interface {
	Save(ctx context.Context, rec model.TaskRecord) (int64, error)
}

// EventPublisher announces saved task records.
type EventPublisher interface {
	PublishTaskCreated(ctx context.Context, event *model.TaskCreatedEvent) error
}

// SendError reports outbound messages that could not be delivered. The state
// transition that produced them has already been committed; retry with
// Dispatcher.Resend, not Handle.
type SendError struct {
	ConversationID string
	Pending        []string
	Err            error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed with %d message(s) pending: %v", e.ConversationID, len(e.Pending), e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Dispatcher runs one inbound event through the dialogue for its conversation.
type Dispatcher struct {
	sessions  *session.Store
	store     TaskStore
	sender    Sender
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. publisher may be nil.
func NewDispatcher(
	sessions *session.Store,
	store TaskStore,
	sender Sender,
	publisher EventPublisher,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		sessions:  sessions,
		store:     store,
		sender:    sender,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Handle processes one inbound event. The transition is committed before any
// message is sent, and is never rolled back.
func (d *Dispatcher) Handle(ctx context.Context, event *model.InboundEvent) error {
	if event == nil || event.ConversationID == "" {
		return ErrMissingConversation
	}

	ctx, span := tracing.Tracer().Start(ctx, "dispatcher.Handle", trace.WithAttributes(
		attribute.String("conversation.id", event.ConversationID),
		attribute.String("conversation.channel", event.Channel),
	))
	defer span.End()

	log := d.logger.ForConversation(event.ConversationID, event.Channel)

	payload := "text"
	if !event.HasText() {
		payload = "non_text"
	}
	metrics.InboundEventsTotal.WithLabelValues(event.Channel, payload).Inc()

	var (
		from dialogue.Kind
		res  dialogue.Result
	)
	turn, next := d.sessions.Commit(session.ID(event.ConversationID), func(cur dialogue.State) dialogue.State {
		from = cur.Kind()
		res = dialogue.Transition(cur, dialogue.FromPointer(event.Text))
		return res.Next
	})
	defer turn.Done()

	metrics.SessionsActive.Set(float64(d.sessions.Len()))
	metrics.RecordTransition(string(from), string(next.Kind()))
	span.SetAttributes(
		attribute.String("dialogue.from", string(from)),
		attribute.String("dialogue.to", string(next.Kind())),
	)
	log.Debug("transition",
		zap.String("from", string(from)),
		zap.String("to", string(next.Kind())),
		zap.Int("outbound", len(res.Outbound)),
	)

	var sendErr *SendError
	if err := turn.Wait(ctx); err != nil {
		sendErr = &SendError{ConversationID: event.ConversationID, Pending: append([]string(nil), res.Outbound...), Err: err}
	} else {
		sendErr = d.send(ctx, event.ConversationID, res.Outbound)
	}

	if res.Record != nil {
		notice := d.persist(ctx, log, event.ConversationID, *res.Record)
		if sendErr != nil {
			sendErr.Pending = append(sendErr.Pending, notice)
		} else {
			sendErr = d.send(ctx, event.ConversationID, []string{notice})
		}
	}

	if sendErr != nil {
		metrics.SendErrorsTotal.Inc()
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, "send failed")
		log.Warn("failed to deliver messages", zap.Int("pending", len(sendErr.Pending)), zap.Error(sendErr.Err))
		return sendErr
	}
	return nil
}

// Resend re-attempts the pending messages of a failed Handle without touching
// the conversation state. The retry takes its own turn, so it goes out after
// every turn already issued for the conversation and before any later one.
func (d *Dispatcher) Resend(ctx context.Context, failed *SendError) error {
	if failed == nil || len(failed.Pending) == 0 {
		return nil
	}

	turn := d.sessions.Enqueue(session.ID(failed.ConversationID))
	defer turn.Done()

	if err := turn.Wait(ctx); err != nil {
		return &SendError{
			ConversationID: failed.ConversationID,
			Pending:        append([]string(nil), failed.Pending...),
			Err:            err,
		}
	}
	if err := d.send(ctx, failed.ConversationID, failed.Pending); err != nil {
		return err
	}
	return nil
}

// State returns the current dialogue state of a conversation.
func (d *Dispatcher) State(conversationID string) dialogue.State {
	return d.sessions.GetOrDefault(session.ID(conversationID))
}

func (d *Dispatcher) send(ctx context.Context, conversationID string, texts []string) *SendError {
	for i, text := range texts {
		if err := d.sender.Send(ctx, conversationID, text); err != nil {
			return &SendError{
				ConversationID: conversationID,
				Pending:        append([]string(nil), texts[i:]...),
				Err:            err,
			}
		}
	}
	return nil
}

// persist saves the record and returns the notice to show the user. The save
// is detached from ctx cancellation because the form has already been reset.
func (d *Dispatcher) persist(ctx context.Context, log *logger.Logger, conversationID string, rec model.TaskRecord) string {
	ctx = context.WithoutCancel(ctx)
	rec.CreatedAt = d.now()

	id, err := d.store.Save(ctx, rec)
	if err != nil {
		metrics.TasksSavedTotal.WithLabelValues("error").Inc()
		log.Error("failed to save task", zap.Error(err))
		return dialogue.MsgTaskSaveFailed
	}
	rec.ID = id
	metrics.TasksSavedTotal.WithLabelValues("success").Inc()
	log.Info("task saved", zap.Int64("task_id", id))

	if d.publisher != nil {
		event := &model.TaskCreatedEvent{
			ID:             uuid.Must(uuid.NewV7()).String(),
			ConversationID: conversationID,
			Task:           rec,
			CreatedAt:      rec.CreatedAt,
		}
		if err := d.publisher.PublishTaskCreated(ctx, event); err != nil {
			metrics.TaskEventsPublished.WithLabelValues("error").Inc()
			log.Warn("failed to publish task event", zap.Int64("task_id", id), zap.Error(err))
		} else {
			metrics.TaskEventsPublished.WithLabelValues("success").Inc()
		}
	}

	return dialogue.MsgTaskSaved
}
