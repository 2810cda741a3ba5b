package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramBot_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)

		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		if payload["chat_id"] == "blocked" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))

			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":55}}`))
	}))
	defer server.Close()

	bot := NewTelegramBot(server.URL, server.Client())

	id, err := bot.SendMessage(context.Background(), "secret", "42", "hi")
	require.NoError(t, err)
	assert.Equal(t, "55", id)

	_, err = bot.SendMessage(context.Background(), "secret", "blocked", "hi")

	var botErr *BotError
	require.ErrorAs(t, err, &botErr)
	assert.Equal(t, 403, botErr.Code)
	assert.True(t, IsUnreachable(err))
}

func TestPersonalService_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send_message", r.URL.Path)

		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		if payload["recipient"] == "" {
			_, _ = w.Write([]byte(`{"ok":false,"error":"recipient required"}`))

			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"data":{"message_id":"pm-1"}}`))
	}))
	defer server.Close()

	service := NewPersonalService(server.URL+"/", server.Client())

	id, err := service.SendMessage(context.Background(), "acc", "ann", "hi")
	require.NoError(t, err)
	assert.Equal(t, "pm-1", id)

	_, err = service.SendMessage(context.Background(), "acc", "", "hi")
	require.ErrorContains(t, err, "recipient required")
}
