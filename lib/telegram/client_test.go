package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot42:abc/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Token: "42:abc", BaseUrl: srv.URL})
	require.NoError(t, err)

	err = client.SendMessage(context.Background(), ChatId(-1001), strings.Repeat("ş", 5000))
	require.NoError(t, err)
	require.Equal(t, "-1001", got["chat_id"])
	require.Len(t, []rune(got["text"].(string)), maxMessageLength)
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Offset  int64 `json:"offset"`
			Timeout int   `json:"timeout"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(7), body.Offset)
		require.Equal(t, 30, body.Timeout)
		w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":3,"chat":{"id":99},"text":"/list"}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Token: "42:abc", BaseUrl: srv.URL})
	require.NoError(t, err)

	updates, err := client.GetUpdates(context.Background(), 7, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, int64(99), updates[0].Message.Chat.Id)
	require.Equal(t, "/list", updates[0].Message.Text)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Token: "42:abc", BaseUrl: srv.URL})
	require.NoError(t, err)

	err = client.SendMessage(context.Background(), "1", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.Code)
	require.Contains(t, apiErr.Description, "blocked")

	_, err = NewClient(ClientOptions{})
	require.ErrorIs(t, err, ErrNoToken)
}
