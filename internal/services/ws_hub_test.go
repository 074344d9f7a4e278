package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *WSHub, userID string) *websocket.Conn {
	t.Helper()
	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		close(registered)
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("connection was not registered")
	}
	return client
}

func TestWSHub_Notify(t *testing.T) {
	hub := NewWSHub()
	client := dialHub(t, hub, "u1")
	assert.True(t, hub.IsOnline("u1"))
	assert.False(t, hub.IsOnline("u2"))

	hub.Notify("u2", WSMessage{Type: EventSyncStarted})
	hub.Notify("u1", WSMessage{Type: EventSyncProgress, Data: Progress{Stage: "photos", Done: 10, Total: 20}})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type      string   `json:"type"`
		Timestamp int64    `json:"timestamp"`
		Data      Progress `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventSyncProgress, msg.Type)
	assert.NotZero(t, msg.Timestamp)
	assert.Equal(t, Progress{Stage: "photos", Done: 10, Total: 20}, msg.Data)
}

func TestWSHub_SendToOfflineUser(t *testing.T) {
	hub := NewWSHub()
	assert.Error(t, hub.SendToUser("ghost", WSMessage{Type: EventSyncStarted}))
}
