package websocket

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, config *HubConfig) (*Hub, string) {
	t.Helper()

	hub := NewHub(config, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url string, header http.Header) *websocket.Conn {
	t.Helper()

	before := hub.GetStats().TotalConnections
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.GetStats().TotalConnections > before
	}, 2*time.Second, 10*time.Millisecond)

	return conn
}

func TestHub_BroadcastRewrite(t *testing.T) {
	hub, url := startHub(t, &HubConfig{BroadcastRewrites: true})
	conn := dial(t, hub, url, nil)

	hub.BroadcastRewrite(RewriteEvent{
		RequestID:     "req-1",
		Mode:          "balanced",
		OriginalScore: 80,
		NewScore:      10,
		PatternIDs:    []string{"zh008"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type      EventType    `json:"type"`
		RequestID string       `json:"request_id"`
		Data      RewriteEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, EventTypeRewriteCompleted, got.Type)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 80, got.Data.OriginalScore)
	assert.Equal(t, []string{"zh008"}, got.Data.PatternIDs)
	assert.Equal(t, int64(1), hub.GetStats().ActiveConnections)
}

func TestHub_ConnectionEventsGoToOthers(t *testing.T) {
	hub, url := startHub(t, &HubConfig{BroadcastConnections: true})
	first := dial(t, hub, url, nil)
	dial(t, hub, url, nil)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type EventType       `json:"type"`
		Data ConnectionEvent `json:"data"`
	}
	require.NoError(t, first.ReadJSON(&got))
	assert.Equal(t, EventTypeConnection, got.Type)
	assert.Equal(t, "connected", got.Data.Action)
}

func TestHub_BasicAuth(t *testing.T) {
	hub, url := startHub(t, &HubConfig{Username: "admin", Password: "secret"})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bad := http.Header{}
	bad.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
	_, resp, err = websocket.DefaultDialer.Dial(url, bad)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	good := http.Header{}
	good.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
	dial(t, hub, url, good)
}

func TestHub_DisabledEventsDropped(t *testing.T) {
	hub := NewHub(&HubConfig{BroadcastRewrites: true}, zap.NewNop())

	hub.BroadcastDetection(DetectionEvent{Score: 50})
	hub.BroadcastRequest(RequestLogEvent{Path: "/api/detect"})
	assert.Len(t, hub.broadcast, 0)

	hub.BroadcastRewrite(RewriteEvent{})
	assert.Len(t, hub.broadcast, 1)
}

func TestShouldSendToClient(t *testing.T) {
	client := &Client{}
	rewrite := Event{Type: EventTypeRewriteCompleted, Data: RewriteEvent{Mode: "light", OriginalScore: 30}}
	health := Event{Type: EventTypeRequestLog, Data: RequestLogEvent{Path: "/health"}}

	assert.True(t, shouldSendToClient(client, rewrite))

	client.setSubscription(&SubscriptionRequest{Events: []EventType{EventTypeDetection}})
	assert.False(t, shouldSendToClient(client, rewrite))

	client.setSubscription(&SubscriptionRequest{
		Events: []EventType{EventTypeRewriteCompleted, EventTypeRequestLog},
		Filter: &EventFilter{MinScore: 50, ExcludeHealth: true},
	})
	assert.False(t, shouldSendToClient(client, rewrite))
	assert.False(t, shouldSendToClient(client, health))

	client.setSubscription(&SubscriptionRequest{Filter: &EventFilter{Modes: []string{"light"}}})
	assert.True(t, shouldSendToClient(client, rewrite))
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(&HubConfig{AllowedOrigins: []string{"localhost:8080"}}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:8080")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, hub.checkOrigin(req))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}
