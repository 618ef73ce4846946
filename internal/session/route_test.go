package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSRouteNotifierForwardsURLs(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"url":"https://example.com/next"}`)))
		time.Sleep(50 * time.Millisecond)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	notifier := NewWSRouteNotifier(conn)

	select {
	case route := <-notifier.Routes():
		require.Equal(t, "https://example.com/next", route)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for route notification")
	}
}

func TestAttachRouteNotifierSetsForceReindex(t *testing.T) {
	mgr := newManager()
	sess := mgr.NewSession(nil)
	sess.lastURL = "https://example.com/a"

	ch := make(chan string, 1)
	notifier := fakeNotifier{ch: ch}
	sess.AttachRouteNotifier(notifier)

	ch <- "https://example.com/b"
	close(ch)

	require.Eventually(t, func() bool {
		sess.mu.RLock()
		defer sess.mu.RUnlock()
		return sess.forceReindex
	}, time.Second, 10*time.Millisecond)
}

type fakeNotifier struct {
	ch chan string
}

func (f fakeNotifier) Routes() <-chan string { return f.ch }
