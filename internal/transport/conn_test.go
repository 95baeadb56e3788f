package transport

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
	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/config"
	"github.com/cardengine/table-client/internal/protocol"
)

type fakeServer struct {
	*httptest.Server
	header   chan http.Header
	received chan []byte
	conns    chan *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		header:   make(chan http.Header, 1),
		received: make(chan []byte, 16),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.header <- r.Header.Clone()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- ws
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			fs.received <- msg
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func dialTest(t *testing.T, fs *fakeServer, token string) (*Conn, *websocket.Conn) {
	t.Helper()
	conn, err := Dial(context.Background(), Options{URL: fs.url(), Token: token}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case ws := <-fs.conns:
		return conn, ws
	case <-time.After(time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestDialSendsBearerToken(t *testing.T) {
	fs := newFakeServer(t)
	dialTest(t, fs, "s3cret")

	h := <-fs.header
	assert.Equal(t, "Bearer s3cret", h.Get("Authorization"))
}

func TestDialWithoutToken(t *testing.T) {
	fs := newFakeServer(t)
	dialTest(t, fs, "")

	h := <-fs.header
	assert.Empty(t, h.Get("Authorization"))
}

func TestInboundSplitsFrames(t *testing.T) {
	fs := newFakeServer(t)
	conn, ws := dialTest(t, fs, "")

	frame := `{"type":"game.info","data":{}}` + "\n\n" + `{"type":"game.prompt","data":{"action":"card","options":[]}}` + "\n"
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))

	var got []string
	for len(got) < 2 {
		select {
		case msg := <-conn.Inbound():
			got = append(got, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d messages", len(got))
		}
	}
	assert.Equal(t, `{"type":"game.info","data":{}}`, got[0])
	assert.Contains(t, got[1], "game.prompt")
}

func TestSendEncodesOutbound(t *testing.T) {
	fs := newFakeServer(t)
	conn, _ := dialTest(t, fs, "")

	require.NoError(t, conn.Send(protocol.SlotChoice(3)))

	select {
	case raw := <-fs.received:
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, protocol.TypeChoice, env.Type)
		assert.JSONEq(t, `["3"]`, string(env.Data))
	case <-time.After(time.Second):
		t.Fatal("server received nothing")
	}
}

func TestServerCloseEndsInbound(t *testing.T) {
	fs := newFakeServer(t)
	conn, ws := dialTest(t, fs, "")

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over")
	require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case _, ok := <-conn.Inbound():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("inbound never closed")
	}
	<-conn.Done()
	assert.NoError(t, conn.Err())
	assert.ErrorIs(t, conn.Send(protocol.EmptyChoice()), ErrClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	conn, _ := dialTest(t, fs, "")

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	<-conn.Done()
	assert.ErrorIs(t, conn.Send(protocol.EmptyChoice()), ErrClosed)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), Options{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Token = "tok"

	opts := OptionsFromConfig(cfg.Server)
	assert.Equal(t, cfg.Server.URL, opts.URL)
	assert.Equal(t, "tok", opts.Token)
	assert.Equal(t, int64(64*1024), opts.MaxMessageSize)

	var empty Options
	empty.withDefaults()
	assert.Equal(t, 54*time.Second, empty.pingPeriod())
	assert.Equal(t, 256, empty.SendBuffer)
}
