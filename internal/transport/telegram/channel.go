// Package telegram implements a Telegram Bot API channel using long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/internal/model"
	"github.com/capitalize-ai/taskform-bot/internal/transport"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

// Name is the channel name and conversation ID prefix.
const Name = "telegram"

const defaultAPIRoot = "https://api.telegram.org"

// Handler processes one inbound event.
type Handler func(ctx context.Context, event *model.InboundEvent) error

// Config holds Telegram channel settings.
type Config struct {
	BotToken       string
	PollInterval   time.Duration
	TimeoutSeconds int
	APIRoot        string
}

// Channel polls getUpdates and sends with sendMessage.
type Channel struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger

	offset int64
}

// NewChannel creates a Telegram channel.
func NewChannel(cfg Config, log *logger.Logger) *Channel {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 20
	}
	if strings.TrimSpace(cfg.APIRoot) == "" {
		cfg.APIRoot = defaultAPIRoot
	}
	return &Channel{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds+10) * time.Second},
		logger: log,
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return Name
}

// Start polls for updates until ctx is cancelled.
func (c *Channel) Start(ctx context.Context, handler Handler) error {
	if strings.TrimSpace(c.cfg.BotToken) == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	c.logger.Info("telegram polling started")

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := c.pollOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("telegram poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Send delivers text to a chat.
func (c *Channel) Send(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("telegram chat id is required")
	}
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// pollOnce fetches one batch of updates. Chats are handled in parallel; the
// updates of one chat are handled in order. The call returns once the whole
// batch is handled.
func (c *Channel) pollOnce(ctx context.Context, handler Handler) error {
	result := getUpdatesResponse{}
	payload := map[string]interface{}{
		"timeout":         c.cfg.TimeoutSeconds,
		"allowed_updates": []string{"message"},
	}
	if offset := atomic.LoadInt64(&c.offset); offset > 0 {
		payload["offset"] = offset
	}
	if err := c.call(ctx, "getUpdates", payload, &result); err != nil {
		return err
	}

	byChat := make(map[int64][]*model.InboundEvent)
	var order []int64
	for _, upd := range result.Result {
		if upd.UpdateID >= atomic.LoadInt64(&c.offset) {
			atomic.StoreInt64(&c.offset, upd.UpdateID+1)
		}
		if upd.Message == nil || upd.Message.MessageID == 0 {
			continue
		}
		chatID := upd.Message.Chat.ID
		if _, ok := byChat[chatID]; !ok {
			order = append(order, chatID)
		}
		byChat[chatID] = append(byChat[chatID], toEvent(upd.Message))
	}

	var wg sync.WaitGroup
	for _, chatID := range order {
		events := byChat[chatID]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, event := range events {
				if err := handler(ctx, event); err != nil {
					c.logger.Error("failed to handle telegram message",
						zap.String("conversation_id", event.ConversationID),
						zap.Error(err),
					)
				}
			}
		}()
	}
	wg.Wait()

	return nil
}

func toEvent(msg *telegramMessage) *model.InboundEvent {
	event := &model.InboundEvent{
		ConversationID: transport.Identity(Name, strconv.FormatInt(msg.Chat.ID, 10)),
		Channel:        Name,
		ReceivedAt:     time.Now(),
	}
	// Captions and media do not count as text.
	if msg.Text != nil {
		text := *msg.Text
		event.Text = &text
	}
	return event
}

func (c *Channel) call(ctx context.Context, method string, payload interface{}, out interface{}) error {
	url := strings.TrimRight(c.cfg.APIRoot, "/") + "/bot" + c.cfg.BotToken + "/" + method
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram %s: status=%d body=%s", method, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var base apiResponse
	if err := json.Unmarshal(respBody, &base); err != nil {
		return fmt.Errorf("telegram %s: decode: %w", method, err)
	}
	if !base.OK {
		return fmt.Errorf("telegram %s: api error: %s", method, base.Description)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type getUpdatesResponse struct {
	apiResponse
	Result []update `json:"result"`
}

type update struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text *string `json:"text"`
}
