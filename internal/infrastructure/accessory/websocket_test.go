package accessory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-accessory-hub/internal/infrastructure/hub"
)

var testConfig = Config{
	PingInterval: time.Hour,
	PongTimeout:  5 * time.Second,
	WriteTimeout: time.Second,
	ReadLimit:    1024,
}

// serveSocket starts a server that wraps every upgraded connection in a
// WebSocketSocket and serves it against h.
func serveSocket(t *testing.T, ctx context.Context, h *mockHub) (*websocket.Conn, <-chan *WebSocketSocket) {
	t.Helper()
	sockets := make(chan *WebSocketSocket, 1)
	provider := NewProvider(h, &mockLogger{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		sock := NewWebSocketSocket(conn, hub.DefaultChannelID, testConfig, &mockLogger{})
		id, err := provider.ServiceConnectionResponse(&hub.Peer{Name: "test"}, sock, ConnectionSuccess)
		if err != nil {
			t.Errorf("register: %v", err)
			return
		}
		sockets <- sock
		sock.Serve(ctx, provider.SocketEvents(id))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, sockets
}

func waitLost(t *testing.T, h *mockHub) hub.ConnectionID {
	t.Helper()
	select {
	case id := <-h.lost:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("connection loss was not reported")
		return 0
	}
}

func TestWebSocketSocket_RoundTrip(t *testing.T) {
	h := newMockHub()
	client, sockets := serveSocket(t, context.Background(), h)
	sock := <-sockets

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("steps=1200")))

	require.NoError(t, sock.Send(hub.DefaultChannelID, []byte("vibrate")))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "vibrate", string(data))

	require.NoError(t, client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Equal(t, hub.ConnectionID(1), waitLost(t, h))

	calls := h.history()
	require.Len(t, calls, 3)
	assert.Equal(t, hubCall{method: "data", id: 1, text: "steps=1200"}, calls[1])
	assert.Equal(t, hubCall{method: "lost", id: 1, code: LossPeerDisconnected}, calls[2])

	assert.ErrorIs(t, sock.Send(hub.DefaultChannelID, []byte("late")), ErrSocketClosed)
}

func TestWebSocketSocket_LocalClose(t *testing.T) {
	h := newMockHub()
	_, sockets := serveSocket(t, context.Background(), h)
	sock := <-sockets

	require.NoError(t, sock.Close())
	assert.NoError(t, sock.Close())
	waitLost(t, h)

	calls := h.history()
	last := calls[len(calls)-1]
	assert.Equal(t, LossLocalClose, last.code)
	for _, c := range calls {
		assert.NotEqual(t, "error", c.method)
	}
}

func TestWebSocketSocket_ContextCancelCloses(t *testing.T) {
	h := newMockHub()
	ctx, cancel := context.WithCancel(context.Background())
	_, sockets := serveSocket(t, ctx, h)
	<-sockets

	cancel()
	waitLost(t, h)
}

func TestWebSocketSocket_ReadFailureReportsError(t *testing.T) {
	h := newMockHub()
	client, sockets := serveSocket(t, context.Background(), h)
	<-sockets

	// exceeds the read limit
	big := make([]byte, testConfig.ReadLimit+1)
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, big))
	waitLost(t, h)

	calls := h.history()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, "error", calls[len(calls)-2].method)
	assert.Equal(t, ErrorCodeTransport, calls[len(calls)-2].code)
	assert.Equal(t, LossReadFailed, calls[len(calls)-1].code)
}
