package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/taskform-bot/internal/dialogue"
)

func TestStore_GetOrDefault(t *testing.T) {
	s := NewStore()

	assert.Equal(t, dialogue.ListOptions{}, s.GetOrDefault("unknown"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetAndReset(t *testing.T) {
	s := NewStore()

	s.Set("a", dialogue.ReceiveTask{Task: "x"})
	assert.Equal(t, dialogue.ReceiveTask{Task: "x"}, s.GetOrDefault("a"))

	s.Reset("a")
	assert.Equal(t, dialogue.ListOptions{}, s.GetOrDefault("a"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_CommitAppliesTransition(t *testing.T) {
	s := NewStore()

	turn, next := s.Commit("a", func(cur dialogue.State) dialogue.State {
		return dialogue.Transition(cur, dialogue.Text("hi")).Next
	})
	turn.Done()

	assert.Equal(t, dialogue.ChoseOption{Option: "hi"}, next)
	assert.Equal(t, next, s.GetOrDefault("a"))
}

func TestStore_CommitIsolatesConversations(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for _, id := range []ID{"a", "b"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				turn, _ := s.Commit(id, func(cur dialogue.State) dialogue.State {
					prev, _ := cur.(dialogue.ReceiveTask)
					return dialogue.ReceiveTask{Task: prev.Task + string(id)}
				})
				turn.Done()
			}
		}()
	}
	wg.Wait()

	a := s.GetOrDefault("a").(dialogue.ReceiveTask)
	b := s.GetOrDefault("b").(dialogue.ReceiveTask)
	assert.Len(t, a.Task, 100)
	assert.NotContains(t, a.Task, "b")
	assert.Len(t, b.Task, 100)
	assert.NotContains(t, b.Task, "a")
}

func TestStore_CommitNoLostUpdate(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			turn, _ := s.Commit("a", func(cur dialogue.State) dialogue.State {
				prev, _ := cur.(dialogue.ReceiveTask)
				return dialogue.ReceiveTask{Task: prev.Task + "x"}
			})
			turn.Done()
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetOrDefault("a").(dialogue.ReceiveTask).Task, 50)
}

func TestTurn_OrdersSideEffects(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })
	second, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(v string) {
		mu.Lock()
		order = append(order, v)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, second.Wait(ctx))
		record("second")
		second.Done()
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, first.Wait(ctx))
	record("first")
	first.Done()
	wg.Wait()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestTurn_WaitHonoursContext(t *testing.T) {
	s := NewStore()

	first, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })
	second, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, second.Wait(ctx), context.DeadlineExceeded)

	// A later turn must still wait for the first one.
	second.Done()
	third, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	assert.Error(t, third.Wait(ctx2))

	first.Done()
	assert.NoError(t, third.Wait(context.Background()))
	third.Done()
}

func TestTurn_DifferentConversationsDoNotWait(t *testing.T) {
	s := NewStore()

	busy, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })
	defer busy.Done()

	for i := 0; i < 3; i++ {
		other, _ := s.Commit(ID(fmt.Sprintf("b%d", i)), func(cur dialogue.State) dialogue.State { return cur })
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		assert.NoError(t, other.Wait(ctx))
		cancel()
		other.Done()
	}
}

func TestStore_EnqueueOrdersWithoutTransition(t *testing.T) {
	s := NewStore()
	s.Set("a", dialogue.AddTask{})

	commit, _ := s.Commit("a", func(dialogue.State) dialogue.State { return dialogue.ReceiveTask{Task: "x"} })
	resend := s.Enqueue("a")
	assert.Equal(t, dialogue.ReceiveTask{Task: "x"}, s.GetOrDefault("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, resend.Wait(ctx), context.DeadlineExceeded)

	commit.Done()
	require.NoError(t, resend.Wait(context.Background()))
	resend.Done()

	later, _ := s.Commit("a", func(cur dialogue.State) dialogue.State { return cur })
	require.NoError(t, later.Wait(context.Background()))
	later.Done()
}
