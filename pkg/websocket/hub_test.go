package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type tokenAuth map[string]uint

func (a tokenAuth) Authenticate(_ context.Context, token string) (uint, error) {
	if id, ok := a[token]; ok {
		return id, nil
	}
	return 0, errors.New("unknown token")
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(tokenAuth{"alice-token": 1, "bob-token": 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, userID uint, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("user %d has %d clients, want %d", userID, hub.ClientCount(userID), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishToUserReachesOnlyThatUser(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "alice-token")
	bob := dial(t, srv, "bob-token")
	waitForClients(t, hub, 1, 1)
	waitForClients(t, hub, 2, 1)

	hub.PublishToUser(1, "attempt_finished", map[string]int{"attemptId": 42})

	var msg Message
	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := alice.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "attempt_finished" {
		t.Fatalf("type = %q, want attempt_finished", msg.Type)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok || data["attemptId"] != float64(42) {
		t.Fatalf("unexpected data: %#v", msg.Data)
	}

	bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := bob.ReadJSON(&msg); err == nil {
		t.Fatalf("bob received a message meant for alice: %+v", msg)
	}
}

func TestHandleWebSocketRejectsBadToken(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/?token=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestClosedConnectionIsUnregistered(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "alice-token")
	waitForClients(t, hub, 1, 1)

	conn.Close()
	waitForClients(t, hub, 1, 0)
}
