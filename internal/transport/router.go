// Package transport routes outbound messages to the chat channel that owns a
// conversation.
package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const separator = ":"

// Channel sends text to a conversation local to that channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, localID, text string) error
}

// Identity builds a conversation ID namespaced by channel, e.g. "telegram:42".
func Identity(channel, localID string) string {
	return channel + separator + localID
}

// Split separates a conversation ID into channel name and local ID.
func Split(conversationID string) (channel, localID string, ok bool) {
	channel, localID, ok = strings.Cut(conversationID, separator)
	if !ok || channel == "" || localID == "" {
		return "", "", false
	}
	return channel, localID, true
}

// Router sends messages through the channel named by the conversation ID
// prefix.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRouter creates a router over the given channels.
func NewRouter(channels ...Channel) *Router {
	r := &Router{channels: make(map[string]Channel)}
	for _, ch := range channels {
		r.Register(ch)
	}
	return r
}

// Register adds or replaces a channel.
func (r *Router) Register(ch Channel) {
	r.mu.Lock()
	r.channels[ch.Name()] = ch
	r.mu.Unlock()
}

// Send implements the dispatcher's sender contract.
func (r *Router) Send(ctx context.Context, conversationID, text string) error {
	name, localID, ok := Split(conversationID)
	if !ok {
		return fmt.Errorf("malformed conversation id %q", conversationID)
	}

	r.mu.RLock()
	ch, found := r.channels[name]
	r.mu.RUnlock()
	if !found {
		return fmt.Errorf("no channel registered for %q", name)
	}

	return ch.Send(ctx, localID, text)
}
