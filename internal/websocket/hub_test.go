package websocket

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestSendToUserReachesOnlyThatUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	alice, bob := uuid.New(), uuid.New()
	tokens := map[string]uuid.UUID{"alice": alice, "bob": bob}

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(tok string) (uuid.UUID, error) {
			if id, ok := tokens[tok]; ok {
				return id, nil
			}
			return uuid.Nil, errors.New("unknown token")
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="
	aliceConn, _, err := websocket.DefaultDialer.Dial(wsURL+"alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer aliceConn.Close()
	bobConn, _, err := websocket.DefaultDialer.Dial(wsURL+"bob", nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bobConn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected(alice) == 0 || hub.Connected(bob) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("clients never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.SendToUser(alice, []byte(`{"title":"po created"}`))

	_ = aliceConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := aliceConn.ReadMessage()
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if string(msg) != `{"title":"po created"}` {
		t.Fatalf("alice got %s", msg)
	}

	_ = bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bobConn.ReadMessage(); err == nil {
		t.Fatal("bob received a message addressed to alice")
	}
}

func TestServeWsRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(string) (uuid.UUID, error) { return uuid.Nil, errors.New("nope") })
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=x"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %+v", resp)
	}
}
