package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

func updatesServer(t *testing.T, updates []map[string]interface{}) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/getUpdates") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		requests = append(requests, payload)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": updates})
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestPollOnce_DeliversTextAndMedia(t *testing.T) {
	server, requests := updatesServer(t, []map[string]interface{}{
		{
			"update_id": 101,
			"message": map[string]interface{}{
				"message_id": 1,
				"text":       "hello",
				"chat":       map[string]interface{}{"id": 22},
			},
		},
		{
			"update_id": 102,
			"message": map[string]interface{}{
				"message_id": 2,
				"caption":    "a photo",
				"photo":      []map[string]interface{}{{"file_id": "f"}},
				"chat":       map[string]interface{}{"id": 22},
			},
		},
		{
			"update_id": 103,
			"message": map[string]interface{}{
				"message_id": 3,
				"text":       "other",
				"chat":       map[string]interface{}{"id": 33},
			},
		},
		{"update_id": 104},
	})

	ch := NewChannel(Config{BotToken: "token", APIRoot: server.URL}, logger.NewNop())

	var (
		mu     sync.Mutex
		events []*model.InboundEvent
	)
	err := ch.pollOnce(context.Background(), func(ctx context.Context, event *model.InboundEvent) error {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	var chat22 []*model.InboundEvent
	for _, e := range events {
		assert.Equal(t, Name, e.Channel)
		if e.ConversationID == "telegram:22" {
			chat22 = append(chat22, e)
		}
	}
	require.Len(t, chat22, 2)
	require.True(t, chat22[0].HasText())
	assert.Equal(t, "hello", *chat22[0].Text)
	assert.False(t, chat22[1].HasText())

	assert.Equal(t, int64(105), ch.offset)

	require.NoError(t, ch.pollOnce(context.Background(), func(context.Context, *model.InboundEvent) error { return nil }))
	require.Len(t, *requests, 2)
	assert.EqualValues(t, 105, (*requests)[1]["offset"])
}

func TestSendMessage(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "22", payload["chat_id"])
		assert.Equal(t, "Task received", payload["text"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{}})
	}))
	defer server.Close()

	ch := NewChannel(Config{BotToken: "token", APIRoot: server.URL}, logger.NewNop())
	require.NoError(t, ch.Send(context.Background(), "22", "Task received"))
	assert.True(t, called)
}

func TestSendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "chat not found"})
	}))
	defer server.Close()

	ch := NewChannel(Config{BotToken: "token", APIRoot: server.URL}, logger.NewNop())
	assert.ErrorContains(t, ch.Send(context.Background(), "22", "x"), "chat not found")
	assert.Error(t, ch.Send(context.Background(), "", "x"))
}

func TestStart_RequiresToken(t *testing.T) {
	ch := NewChannel(Config{}, logger.NewNop())
	assert.Error(t, ch.Start(context.Background(), nil))
}

func TestStart_WaitsForInFlightHandlers(t *testing.T) {
	server, _ := updatesServer(t, []map[string]interface{}{
		{
			"update_id": 7,
			"message": map[string]interface{}{
				"message_id": 1,
				"text":       "ok",
				"chat":       map[string]interface{}{"id": 22},
			},
		},
	})
	ch := NewChannel(Config{BotToken: "token", APIRoot: server.URL, PollInterval: time.Hour}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var finished atomic.Bool
	started := make(chan struct{})
	var once sync.Once

	err := ch.Start(ctx, func(hctx context.Context, event *model.InboundEvent) error {
		once.Do(func() {
			close(started)
			// Shutdown begins while this turn is still persisting.
			cancel()
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
		})
		return nil
	})
	require.NoError(t, err)

	<-started
	assert.True(t, finished.Load(), "Start returned before the handler finished")
}
