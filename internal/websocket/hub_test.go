package websocket

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/americano-tennis/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func fakeClient(hub *Hub) *Client {
	return &Client{id: "test", hub: hub, send: make(chan []byte, 8), logger: hub.logger}
}

func TestHub_DeliversOnlyToTournamentSubscribers(t *testing.T) {
	hub := startHub(t)
	a, b := fakeClient(hub), fakeClient(hub)
	hub.Register(a)
	hub.Register(b)
	hub.Subscribe(a, 1)
	hub.Subscribe(b, 2)
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(1) == 1 && hub.SubscriberCount(2) == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastStandings(1, []domain.Standing{{Rank: 1, PlayerID: 7, Name: "Ana", CurrentScore: 12}})

	select {
	case data := <-a.send:
		var msg struct {
			Type         string            `json:"type"`
			TournamentID int64             `json:"tournament_id"`
			Data         []domain.Standing `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageTypeStandingsUpdate, msg.Type)
		assert.Equal(t, int64(1), msg.TournamentID)
		require.Len(t, msg.Data, 1)
		assert.Equal(t, int64(7), msg.Data[0].PlayerID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive standings")
	}
	assert.Empty(t, b.send)
}

func TestHub_UnregisterDropsSubscriptions(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub)
	hub.Register(c)
	hub.Subscribe(c, 3)
	require.Eventually(t, func() bool { return hub.SubscriberCount(3) == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.SubscriberCount(3))

	_, open := <-c.send
	assert.False(t, open, "send channel should be closed")
}

func TestHub_BroadcastWithoutSubscribersIsDropped(t *testing.T) {
	hub := startHub(t)
	hub.BroadcastMatches(9, []domain.Match{{ID: 1}})
	assert.Equal(t, 0, hub.SubscriberCount(9))
}

func TestHub_CallsReturnAfterStop(t *testing.T) {
	// a stopped hub whose loop has exited
	hub := NewHub(testLogger())
	hub.Stop()
	c := fakeClient(hub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Subscribe(c, 7)
			hub.Unsubscribe(c, 7)
		}
		hub.Unregister(c)
		assert.False(t, hub.Register(fakeClient(hub)))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := newUpgrader(nil)
	assert.True(t, open.CheckOrigin(req("http://anywhere.example")))

	restricted := newUpgrader([]string{"http://club.example"})
	assert.True(t, restricted.CheckOrigin(req("http://club.example")))
	assert.True(t, restricted.CheckOrigin(req("")))
	assert.False(t, restricted.CheckOrigin(req("http://evil.example")))
}

// readUntil reads frames until a message of the wanted type arrives. The
// write pump may pack several messages into one frame, separated by newlines.
func readUntil(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			var msg struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(line, &msg))
			if msg.Type == want {
				return msg.Data
			}
		}
	}
}

func TestHandler_SubscribeAndReceiveMatches(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(Handler(hub, nil, testLogger()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe}))
	data := readUntil(t, conn, MessageTypeError)
	assert.Contains(t, string(data), "tournament_id required")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, TournamentID: 5}))
	readUntil(t, conn, "subscribed")
	require.Eventually(t, func() bool { return hub.SubscriberCount(5) == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastMatches(5, []domain.Match{{ID: 11, TournamentID: 5, RoundNumber: 1, CourtNumber: 1}})
	data = readUntil(t, conn, MessageTypeMatchesUpdate)

	var matches []domain.Match
	require.NoError(t, json.Unmarshal(data, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, int64(11), matches[0].ID)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypePing}))
	readUntil(t, conn, MessageTypePong)
}
