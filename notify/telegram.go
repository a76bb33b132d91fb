package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
	"go.uber.org/zap"
)

const telegramRequestTimeout = 10 * time.Second

// TelegramConfig is the configuration for the Telegram Adapter.
type TelegramConfig struct {
	// BotToken is the Telegram bot API token.
	BotToken string
	// ChatID is the chat all notifications go to.
	ChatID string
	// BaseURL overrides the Telegram API base URL. Empty means the public API.
	BaseURL string
}

// Telegram is the Adapter for the Telegram Bot API.
type Telegram struct {
	config     TelegramConfig
	httpClient *http.Client
}

// NewTelegram creates a Telegram Adapter with the given config.
func NewTelegram(config TelegramConfig) *Telegram {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	return &Telegram{
		config: config,
		httpClient: &http.Client{
			Timeout: telegramRequestTimeout,
		},
	}
}

// inlineKeyboard is the reply_markup representation of a Message keyboard.
type inlineKeyboard struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

func keyboardMarkup(message Message) *inlineKeyboard {
	if len(message.Keyboard) == 0 {
		return nil
	}
	return &inlineKeyboard{InlineKeyboard: message.Keyboard}
}

// SendMessage sends the message to the configured chat via sendMessage.
func (t *Telegram) SendMessage(ctx context.Context, message Message) error {
	payload := map[string]interface{}{
		"chat_id":    t.config.ChatID,
		"text":       message.Text,
		"parse_mode": "HTML",
	}
	if markup := keyboardMarkup(message); markup != nil {
		payload["reply_markup"] = markup
	}
	err := t.call(ctx, "sendMessage", payload)
	if err != nil {
		return errors.Wrap(err, "send message", nil)
	}
	logging.NotifyLogger.Info("telegram message sent", zap.String("chat_id", t.config.ChatID))
	return nil
}

// EditMessage replaces an existing message via editMessageText.
func (t *Telegram) EditMessage(ctx context.Context, chatID string, messageID int64, message Message) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       message.Text,
		"parse_mode": "HTML",
	}
	if markup := keyboardMarkup(message); markup != nil {
		payload["reply_markup"] = markup
	}
	err := t.call(ctx, "editMessageText", payload)
	if err != nil {
		return errors.Wrap(err, "edit message", errors.Details{"message_id": messageID})
	}
	return nil
}

// EditReplyMarkup replaces the inline keyboard of an existing message via
// editMessageReplyMarkup.
func (t *Telegram) EditReplyMarkup(ctx context.Context, chatID string, messageID int64, keyboard [][]Button) error {
	payload := map[string]interface{}{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": inlineKeyboard{InlineKeyboard: keyboard},
	}
	err := t.call(ctx, "editMessageReplyMarkup", payload)
	if err != nil {
		return errors.Wrap(err, "edit reply markup", errors.Details{"message_id": messageID})
	}
	return nil
}

// AnswerCallback acknowledges a callback query so the client drops its
// loading state.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = false
	}
	err := t.call(ctx, "answerCallbackQuery", payload)
	if err != nil {
		return errors.Wrap(err, "answer callback query", nil)
	}
	return nil
}

// call performs one Bot API method call.
func (t *Telegram) call(ctx context.Context, method string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "marshal request payload", errors.Details{"method": method})
	}
	url := fmt.Sprintf("%s/bot%s/%s", t.config.BaseURL, t.config.BotToken, method)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "create request", errors.Details{"method": method})
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := t.httpClient.Do(request)
	if err != nil {
		return errors.NewCommunicationError(err, "perform request", errors.Details{"method": method})
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return errors.NewCommunicationError(nil, "telegram api returned bad status", errors.Details{
			"method":      method,
			"status_code": response.StatusCode,
			"response":    string(responseBody),
		})
	}
	return nil
}
