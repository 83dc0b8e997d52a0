// Package webchat implements an HTTP chat channel. Replies are buffered per
// conversation until the client collects them.
package webchat

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Name is the channel name and conversation ID prefix.
const Name = "webchat"

// DefaultMaxPending bounds the buffered replies per conversation.
const DefaultMaxPending = 100

// Outbox buffers outbound messages per conversation.
type Outbox struct {
	mu         sync.Mutex
	pending    map[string][]string
	exchanges  map[string]*exchangeLock
	maxPending int
}

type exchangeLock struct {
	mu   sync.Mutex
	refs int
}

// NewOutbox creates an outbox. The oldest message is dropped once a
// conversation holds maxPending replies.
func NewOutbox(maxPending int) *Outbox {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Outbox{
		pending:    make(map[string][]string),
		exchanges:  make(map[string]*exchangeLock),
		maxPending: maxPending,
	}
}

// Name returns the channel name.
func (o *Outbox) Name() string {
	return Name
}

// NewConversation returns a fresh local conversation ID.
func (o *Outbox) NewConversation() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Send buffers text for the conversation.
func (o *Outbox) Send(ctx context.Context, localID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := append(o.pending[localID], text)
	if len(msgs) > o.maxPending {
		msgs = msgs[len(msgs)-o.maxPending:]
	}
	o.pending[localID] = msgs
	return nil
}

// Drain returns and clears the buffered replies of a conversation.
func (o *Outbox) Drain(localID string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.pending[localID]
	delete(o.pending, localID)
	if msgs == nil {
		return []string{}
	}
	return msgs
}

// Exchange runs fn and then drains the conversation, holding a per
// conversation lock across both steps. Concurrent exchanges for the same
// conversation run one after another, so each caller collects exactly the
// replies its own fn produced.
func (o *Outbox) Exchange(localID string, fn func() error) ([]string, error) {
	l := o.acquire(localID)
	l.mu.Lock()
	defer o.release(localID, l)

	err := fn()
	return o.Drain(localID), err
}

func (o *Outbox) acquire(localID string) *exchangeLock {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.exchanges[localID]
	if !ok {
		l = &exchangeLock{}
		o.exchanges[localID] = l
	}
	l.refs++
	return l
}

func (o *Outbox) release(localID string, l *exchangeLock) {
	l.mu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(o.exchanges, localID)
	}
}
