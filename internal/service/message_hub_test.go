package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMessageHubBroadcast(t *testing.T) {
	hub := NewMessageHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, 7)
	}))
	defer srv.Close()

	// 同一用户的两个标签页都能收到事件
	first := dialHub(t, srv)
	second := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(EventMessageCreated, map[string]string{"content": "hello"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, EventMessageCreated, msg.Type)
		assert.Equal(t, map[string]interface{}{"content": "hello"}, msg.Data)
	}

	first.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestMessageHubStop(t *testing.T) {
	hub := NewMessageHub(nil)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, 1)
	}))
	defer srv.Close()

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Stop()
	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestMessageHubRedisFanout(t *testing.T) {
	mr, _ := setupTestRedis(t)

	// 两个实例共享同一个 Redis
	startHub := func() *MessageHub {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		hub := NewMessageHub(rdb)
		go hub.Run()
		t.Cleanup(hub.Stop)
		return hub
	}
	a, b := startHub(), startHub()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(messageChannel)[messageChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(b, w, r, 3)
	}))
	defer srv.Close()
	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, a.ClientCount())

	a.Broadcast(EventReplyCreated, map[string]string{"content": "收到"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventReplyCreated, msg.Type)
	assert.Equal(t, map[string]interface{}{"content": "收到"}, msg.Data)
}
