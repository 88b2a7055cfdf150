package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil reads scenes until pred holds
func readUntil(t *testing.T, conn *websocket.Conn, pred func(Message) bool) Message {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if pred(msg) {
			return msg
		}
	}
	t.Fatal("condition not reached")
	return Message{}
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	id := env.createSession(t)
	conn := dialStream(t, srv, id)

	first := readMessage(t, conn)
	require.Equal(t, MessageScene, first.Type)
	require.NotNil(t, first.Scene)
	assert.Empty(t, first.Scene.Windows)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WSConnections))

	require.NoError(t, conn.WriteJSON(Event{Type: EventOpen, App: intPtr(5)}))
	msg := readUntil(t, conn, func(m Message) bool {
		return m.Type == MessageScene && len(m.Scene.Windows) == 1
	})
	assert.Equal(t, "Home", msg.Scene.Windows[0].Name)

	require.NoError(t, conn.WriteJSON(Event{Type: "bogus"}))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, "unknown type")
}

func TestStreamSeesHTTPInput(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	id := env.createSession(t)
	conn := dialStream(t, srv, id)
	readMessage(t, conn)

	env.do(t, http.MethodPost, "/api/sessions/"+id+"/input", Event{Type: EventStartMenu})
	msg := readUntil(t, conn, func(m Message) bool {
		return m.Type == MessageScene && m.Scene.Taskbar.StartMenuOpen
	})
	assert.NotNil(t, msg.Scene.StartMenu)
}

func TestStreamClosedOnDelete(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	id := env.createSession(t)
	conn := dialStream(t, srv, id)
	readMessage(t, conn)

	require.NoError(t, env.sessions.Delete(id))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
			break
		}
	}

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamHoldsSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	id := env.createSession(t)
	conn := dialStream(t, srv, id)
	readMessage(t, conn)

	assert.Equal(t, 0, env.sessions.Reap(-1))
	assert.Equal(t, 1, env.sessions.List()[0].Streams)
}
