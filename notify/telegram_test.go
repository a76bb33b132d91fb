package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susaninz/geosite-manager/errors"
)

func TestTelegram_SendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload), "payload should be json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()
	telegram := NewTelegram(TelegramConfig{
		BotToken: "token123",
		ChatID:   "42",
		BaseURL:  server.URL,
	})

	err := telegram.SendMessage(context.Background(), Message{
		Text: "<b>hi</b>",
		Keyboard: [][]Button{
			{{Text: "Ack", CallbackData: CallbackAlertAck}},
		},
	})
	require.NoError(t, err, "send should succeed")
	assert.Equal(t, "/bottoken123/sendMessage", gotPath, "should call sendMessage")
	assert.Equal(t, "42", gotPayload["chat_id"], "chat id should be set")
	assert.Equal(t, "HTML", gotPayload["parse_mode"], "parse mode should be html")
	assert.NotNil(t, gotPayload["reply_markup"], "keyboard should be included")
}

func TestTelegram_SendMessageBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()
	telegram := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "1", BaseURL: server.URL})

	err := telegram.SendMessage(context.Background(), Message{Text: "hi"})
	require.Error(t, err, "bad status should fail")
	e, _ := errors.Cast(err)
	assert.Equal(t, errors.ErrCommunication, e.Code, "should be a communication error")
}

func TestTelegram_EditReplyMarkup(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload), "payload should be json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()
	telegram := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "1", BaseURL: server.URL})

	err := telegram.EditReplyMarkup(context.Background(), "1", 77, AckedKeyboard())
	require.NoError(t, err, "edit should succeed")
	assert.Equal(t, "/bott/editMessageReplyMarkup", gotPath, "should call editMessageReplyMarkup")
	assert.Equal(t, "1", gotPayload["chat_id"], "chat id should be set")
	assert.Equal(t, float64(77), gotPayload["message_id"], "message id should be set")
	assert.NotNil(t, gotPayload["reply_markup"], "keyboard should be included")
}

func TestTelegram_AnswerCallback(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload), "payload should be json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()
	telegram := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "1", BaseURL: server.URL})

	err := telegram.AnswerCallback(context.Background(), "cb-1", "done")
	require.NoError(t, err, "answer should succeed")
	assert.Equal(t, "/bott/answerCallbackQuery", gotPath, "should call answerCallbackQuery")
	assert.Equal(t, "cb-1", gotPayload["callback_query_id"], "callback id should be set")
	assert.Equal(t, "done", gotPayload["text"], "text should be set")
}
