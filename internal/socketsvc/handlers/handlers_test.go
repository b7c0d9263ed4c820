package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/friendsofpifa/pifa-services/internal/socketsvc/ws"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Error replies to a misbehaving client race against the NATS fan-out writing
// to the same socket. Both must go through the SocketConn write lock, gorilla
// panics on concurrent writes otherwise.
func TestErrorReplySharesWriteLock(t *testing.T) {
	s := ws.NewWs()
	h := NewHandler(s)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- c
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	serverConn := <-connCh
	defer serverConn.Close()
	s.StoreConnection("sock-a", serverConn)

	const writes = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sc, ok := s.GetConnection("sock-a")
		if !ok {
			t.Error("socket not registered")
			return
		}
		for i := 0; i < writes; i++ {
			_ = sc.WriteJSON(&comm.WSMessage{Type: comm.EventBidUpdate})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			h.sendErrorToClient("sock-a", "Invalid message format")
		}
	}()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	for received := 0; received < 2*writes; received++ {
		_, _, err := client.ReadMessage()
		require.NoError(t, err)
	}
	wg.Wait()
}
