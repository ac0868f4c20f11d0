package net

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", SessionOptions{
		InQueueSize:  8,
		OutQueueSize: 8,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	go srv.AcceptLoop()
	t.Cleanup(srv.Shutdown)
	return srv
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+Path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func nextSession(t *testing.T, srv *Server) *Session {
	t.Helper()
	select {
	case sess := <-srv.NewSessions():
		return sess
	case <-time.After(2 * time.Second):
		t.Fatal("no session")
	}
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	srv := startServer(t)
	client := dial(t, srv)
	sess := nextSession(t, srv)

	require.NoError(t, client.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"key","player":"shopper","code":"KeyW","down":true}`)))

	select {
	case msg := <-sess.InQueue:
		assert.Equal(t, ClientMessage{Type: TypeKey, Player: "shopper", Code: "KeyW", Down: true}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the game loop")
	}

	sess.SendJSON(SnapshotMessage{
		Type: TypeSnapshot,
		Tick: 12,
		Characters: []CharacterView{
			{Name: "clerk", Controller: "ai", Position: [3]float64{1, 0, 2}, State: "CHASE"},
		},
	})
	select {
	case <-time.After(50 * time.Millisecond):
	case <-sess.OutQueue:
		t.Fatal("Send must buffer until FlushOutput")
	}
	sess.FlushOutput()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := client.ReadMessage()
	require.NoError(t, err)
	var snap SnapshotMessage
	require.NoError(t, json.Unmarshal(frame, &snap))
	assert.Equal(t, uint64(12), snap.Tick)
	require.Len(t, snap.Characters, 1)
	assert.Equal(t, "CHASE", snap.Characters[0].State)
}

func TestMalformedFrameGetsError(t *testing.T) {
	srv := startServer(t)
	client := dial(t, srv)
	sess := nextSession(t, srv)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := client.ReadMessage()
	require.NoError(t, err)

	var em ErrorMessage
	require.NoError(t, json.Unmarshal(frame, &em))
	assert.Equal(t, TypeError, em.Type)
	assert.Contains(t, em.Message, "dance")
	assert.Empty(t, sess.InQueue)
}

func TestClientDisconnectIsReported(t *testing.T) {
	srv := startServer(t)
	client := dial(t, srv)
	sess := nextSession(t, srv)

	client.Close()
	select {
	case id := <-srv.DeadSessions():
		assert.Equal(t, sess.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("dead session not reported")
	}
	assert.True(t, sess.IsClosed())
}

func TestDecodeClient(t *testing.T) {
	on := true
	tests := []struct {
		frame string
		want  ClientMessage
		ok    bool
	}{
		{`{"type":"hello","player":"shopper"}`, ClientMessage{Type: TypeHello, Player: "shopper"}, true},
		{`{"type":"hello"}`, ClientMessage{}, false},
		{`{"type":"key","code":"ArrowUp","down":false}`, ClientMessage{Type: TypeKey, Code: "ArrowUp"}, true},
		{`{"type":"key"}`, ClientMessage{}, false},
		{`{"type":"ai","active":true}`, ClientMessage{Type: TypeAI, Active: &on}, true},
		{`{"type":"ai"}`, ClientMessage{}, false},
		{`not json`, ClientMessage{}, false},
	}
	for _, tt := range tests {
		got, err := DecodeClient([]byte(tt.frame))
		if !tt.ok {
			assert.ErrorIs(t, err, ErrBadMessage, tt.frame)
			continue
		}
		require.NoError(t, err, tt.frame)
		assert.Equal(t, tt.want, got)
	}
}
