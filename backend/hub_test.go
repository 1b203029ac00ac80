package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func readWSMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketReceivesStatusAndReset(t *testing.T) {
	f := newAPIFixture(t, nil)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go f.srv.hub.Run(done)

	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := readWSMessage(t, conn)
	require.Equal(t, "status", msg.Type)
	require.Eventually(t, func() bool { return f.srv.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/start", "application/json", strings.NewReader(`{"mode":2}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg = readWSMessage(t, conn)
	require.Equal(t, "reset", msg.Type)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	require.Equal(t, "running", status.Status)

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "move", Payload: mustMarshal(Move{Row: 7, Col: 7})}))
	require.Eventually(t, func() bool {
		return f.srv.controller.Tick()
	}, 2*time.Second, 10*time.Millisecond)
	state := f.srv.controller.State()
	require.Equal(t, CellBlack, state.Board.At(7, 7))
}

func TestHubDropsWhenQueueIsFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 100; i++ {
		hub.PublishStatus(StatusResponse{})
	}
	require.Len(t, hub.broadcastStatus, cap(hub.broadcastStatus))
}
