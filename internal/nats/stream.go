package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/taskform-bot/internal/model"
)

const (
	// StreamName is the name of the task events stream.
	StreamName = "TASKS"

	// SubjectPrefix is the prefix for all task subjects.
	SubjectPrefix = "tasks"

	// SubjectTaskCreated is the subject for saved task records.
	SubjectTaskCreated = SubjectPrefix + ".created"
)

// Publisher is the subset of JetStream used to publish task events.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles the task events stream.
type StreamManager struct {
	js  jetstream.JetStream
	pub Publisher
}

// NewStreamManager creates a stream manager on top of a connected client.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream(), pub: client.JetStream()}
}

// NewPublisherStreamManager creates a stream manager that only publishes.
func NewPublisherStreamManager(pub Publisher) *StreamManager {
	return &StreamManager{pub: pub}
}

// EnsureStream ensures the task events stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if m.js == nil {
		return fmt.Errorf("ensure stream: no JetStream context")
	}

	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Saved task records",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// PublishTaskCreated publishes a task-created event. The event ID doubles as
// the JetStream message ID for de-duplication.
func (m *StreamManager) PublishTaskCreated(ctx context.Context, event *model.TaskCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}

	if _, err := m.pub.Publish(ctx, SubjectTaskCreated, data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish task event: %w", err)
	}

	return nil
}
