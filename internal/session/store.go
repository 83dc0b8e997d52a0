// Package session keeps the dialogue state of every live conversation.
package session

import (
	"context"
	"sync"

	"github.com/capitalize-ai/taskform-bot/internal/dialogue"
)

// ID identifies one conversation.
type ID string

type entry struct {
	mu    sync.Mutex
	state dialogue.State

	// tail is closed when the most recently issued turn is done.
	tail chan struct{}
}

// Store maps conversation IDs to dialogue states. Operations on different IDs
// do not block each other; operations on the same ID are ordered.
type Store struct {
	mu      sync.RWMutex
	entries map[ID]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		entries: make(map[ID]*entry),
	}
}

func (s *Store) entry(id ID) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok = s.entries[id]; ok {
		return e
	}
	done := make(chan struct{})
	close(done)
	e = &entry{state: dialogue.Initial(), tail: done}
	s.entries[id] = e
	return e
}

// GetOrDefault returns the state for id, or ListOptions if id was never seen.
func (s *Store) GetOrDefault(id ID) dialogue.State {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return dialogue.Initial()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Set replaces the state for id.
func (s *Store) Set(id ID, state dialogue.State) {
	if state == nil {
		state = dialogue.Initial()
	}
	e := s.entry(id)
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

// Reset returns the conversation to ListOptions.
func (s *Store) Reset(id ID) {
	s.Set(id, dialogue.Initial())
}

// Len returns the number of conversations seen so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Commit applies fn to the current state of id and stores the result, all
// under the conversation's lock. The returned Turn orders the caller's side
// effects after those of every earlier Commit for the same id.
func (s *Store) Commit(id ID, fn func(dialogue.State) dialogue.State) (*Turn, dialogue.State) {
	e := s.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	next := fn(e.state)
	if next == nil {
		next = dialogue.Initial()
	}
	e.state = next
	return e.issue(), next
}

// Enqueue issues a Turn for id without touching its state. Side effects that
// belong to no transition, such as redelivering failed replies, use it to stay
// ordered with the conversation's other turns.
func (s *Store) Enqueue(id ID) *Turn {
	e := s.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.issue()
}

// issue appends a turn to the conversation's order. e.mu must be held.
func (e *entry) issue() *Turn {
	t := &Turn{prev: e.tail, done: make(chan struct{})}
	e.tail = t.done
	return t
}

// Turn is a slot in a conversation's side-effect order.
type Turn struct {
	prev chan struct{}
	done chan struct{}
	once sync.Once
}

// Wait blocks until every earlier turn of the conversation is done.
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done releases the next turn. If earlier turns are still running, the release
// is deferred until they finish so later turns never overtake them.
func (t *Turn) Done() {
	t.once.Do(func() {
		select {
		case <-t.prev:
			close(t.done)
		default:
			go func() {
				<-t.prev
				close(t.done)
			}()
		}
	})
}
