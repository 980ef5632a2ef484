package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/catalog"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"github.com/wayfarer-rpg/wayfarer/internal/game/session"
	"github.com/wayfarer-rpg/wayfarer/internal/persist"
	"go.uber.org/zap/zaptest"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := persist.NewMemoryStore()
	cat := catalog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger)
	go hub.Run(ctx)

	srv := NewServer(hub, func() (*session.Game, error) {
		return session.New(session.DefaultConfig(), session.Deps{
			Catalog: cat,
			Store:   store,
			Random:  random.Fixed{Float: 0.99},
			Logger:  logger,
		})
	}, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads until a message of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, want string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func command(t *testing.T, conn *websocket.Conn, input string) ResultData {
	t.Helper()
	require.NoError(t, conn.WriteJSON(WSMessage{Type: TypeCommand, Data: CommandData{Input: input}}))
	msg := next(t, conn, TypeResult)
	var res ResultData
	require.NoError(t, json.Unmarshal(msg.Data, &res))
	return res
}

func TestWebSessionPlaysCommands(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	res := command(t, conn, "look")
	assert.False(t, res.Success)
	assert.Nil(t, res.Status)

	res = command(t, conn, "new Aria warrior")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Running", res.State)
	require.NotNil(t, res.Status)
	assert.Equal(t, "Aria", res.Status.Name)
	assert.Equal(t, "Village Square", res.Status.Location)
	assert.Contains(t, res.Events, "Welcome, Aria the Warrior.")

	res = command(t, conn, "go north")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Whispering Forest", res.Status.Location)
	assert.Contains(t, res.Events, "Discovered Whispering Forest.")
}

func TestWebSessionsAreIsolated(t *testing.T) {
	ts, hub := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)

	require.True(t, command(t, a, "new Aria warrior").Success)
	res := command(t, b, "stats")
	assert.False(t, res.Success)
	assert.Nil(t, res.Status)

	assert.Eventually(t, func() bool { return hub.Online() == 2 }, time.Second, 10*time.Millisecond)
}

func TestWebRejectsMalformedMessages(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := next(t, conn, TypeError)
	assert.NotEmpty(t, msg.Data)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var p PresenceData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, 0, p.Online)
}
