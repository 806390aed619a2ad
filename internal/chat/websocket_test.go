package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crewlink/crewchat/internal/testutil"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// chatTestServer upgrades, checks the auth frame against wantToken,
// acks, then echoes every send frame back as a full message.
func chatTestServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var auth types.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))

		if auth.Token != wantToken {
			conn.WriteJSON(types.ErrorFrame{Error: "invalid token"})
			return
		}
		require.NoError(t, conn.WriteJSON(types.ReadyFrame{Ready: true}))

		n := 0
		for {
			var frame types.SendFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			n++
			conn.WriteJSON(types.Message{
				Id:       strings.Repeat("e", n),
				RoomId:   strings.TrimPrefix(r.URL.Path, "/api/chat/ws/"),
				SenderId: 1,
				Content:  frame.Content,
				SentAt:   time.Now().UTC(),
			})
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketChannelOpenAndSend(t *testing.T) {
	srv := chatTestServer(t, "good-token")
	defer srv.Close()

	c := NewWebsocketChannel(wsURL(srv), testutil.TestLogger(t))
	defer c.Close()

	var statuses []Status
	statusCh := make(chan Status, 8)
	c.OnStatus(func(s Status) { statusCh <- s })

	received := make(chan types.Message, 1)
	c.OnMessage(func(m types.Message) { received <- m })

	require.NoError(t, c.Open(context.Background(), "p1", "good-token"))

	for len(statusCh) > 0 {
		statuses = append(statuses, <-statusCh)
	}
	assert.Equal(t, []Status{StatusConnecting, StatusAuthenticating, StatusConnected}, statuses)
	assert.Equal(t, StatusConnected, c.Status())

	require.NoError(t, c.Send("sound speed", nil))

	select {
	case m := <-received:
		assert.Equal(t, "sound speed", m.Content)
		assert.Equal(t, "p1", m.RoomId)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestWebsocketChannelAuthRejected(t *testing.T) {
	srv := chatTestServer(t, "good-token")
	defer srv.Close()

	c := NewWebsocketChannel(wsURL(srv), testutil.TestLogger(t))

	err := c.Open(context.Background(), "p1", "bad-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
	assert.Equal(t, StatusError, c.Status())

	assert.ErrorIs(t, c.Send("hello", nil), ErrNotConnected)
}

func TestWebsocketChannelDialFailure(t *testing.T) {
	c := NewWebsocketChannel("ws://127.0.0.1:1", testutil.TestLogger(t))
	c.connectTimeout = time.Second

	err := c.Open(context.Background(), "p1", "token")
	require.Error(t, err)
	assert.Equal(t, StatusError, c.Status())
}

func TestWebsocketChannelCloseClearsHandlers(t *testing.T) {
	srv := chatTestServer(t, "good-token")
	defer srv.Close()

	c := NewWebsocketChannel(wsURL(srv), testutil.TestLogger(t))

	fired := make(chan struct{}, 8)
	c.OnStatus(func(Status) { fired <- struct{}{} })
	c.OnMessage(func(types.Message) { fired <- struct{}{} })

	require.NoError(t, c.Open(context.Background(), "p1", "good-token"))
	for len(fired) > 0 {
		<-fired
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, StatusDisconnected, c.Status())

	// nothing from the torn-down connection reaches the old handlers
	select {
	case <-fired:
		t.Fatal("handler fired after Close")
	case <-time.After(100 * time.Millisecond):
	}

	assert.ErrorIs(t, c.Send("hello", nil), ErrNotConnected)
}

func TestWebsocketChannelServerDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		var auth types.AuthFrame
		require.NoError(t, conn.ReadJSON(&auth))
		require.NoError(t, conn.WriteJSON(types.ReadyFrame{Ready: true}))
		conn.Close()
	}))
	defer srv.Close()

	c := NewWebsocketChannel(wsURL(srv), testutil.TestLogger(t))

	statusCh := make(chan Status, 8)
	c.OnStatus(func(s Status) { statusCh <- s })

	require.NoError(t, c.Open(context.Background(), "p1", "token"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-statusCh:
			if s == StatusDisconnected {
				assert.Equal(t, StatusDisconnected, c.Status())
				return
			}
		case <-deadline:
			t.Fatal("never observed disconnect")
		}
	}
}

func TestOfflineChannel(t *testing.T) {
	c := OfflineChannel{}

	assert.NoError(t, c.Open(context.Background(), "p1", ""))
	assert.ErrorIs(t, c.Send("hello", nil), ErrNotConnected)
	assert.NoError(t, c.Close())
}
