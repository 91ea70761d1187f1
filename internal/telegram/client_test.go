package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), "TOKEN", srv.URL)
	err := client.SendMessage(context.Background(), 42, "hello")
	require.NoError(t, err)

	assert.EqualValues(t, 42, got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestSendMessage_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok": false, "description": "bot was blocked by the user"}`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), "TOKEN", srv.URL)
	err := client.SendMessage(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{
			"ok": true,
			"result": [
				{"update_id": 7, "message": {"message_id": 1, "text": "/subscribe",
					"chat": {"id": 42, "username": "trader", "first_name": "T"}}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), "TOKEN", srv.URL)
	updates, err := client.GetUpdates(context.Background(), 7, time.Second)
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.EqualValues(t, 7, updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/subscribe", updates[0].Message.Text)
	assert.EqualValues(t, 42, updates[0].Message.Chat.ID)
}

func TestGetUpdates_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "result": []}`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), "TOKEN", srv.URL)
	_, err := client.GetUpdates(context.Background(), 0, time.Second)
	require.Error(t, err)
}
