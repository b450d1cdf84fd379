package service

import (
	"context"
	"encoding/json"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	sendBuffer     = 256

	messageChannel = "learnhub:messages"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 推送给客户端的事件
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Hub     *MessageHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

// readPump 留言板为只读推送，客户端消息仅用于保活
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}
		// 超出速率的客户端直接断开
		if !c.Limiter.Allow() {
			logger.Log.Warn("WebSocket client rate limited", zap.Uint("userId", c.UserID))
			break
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

// MessageHub 维护留言板 WebSocket 连接
// 配置了 Redis 时事件经由 pub/sub 分发，多个实例共享同一留言板
type MessageHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

func NewMessageHub(rdb *redis.Client) *MessageHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &MessageHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[*Client]struct{})}
	}
	return h
}

func (h *MessageHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

func (h *MessageHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, messageChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				h.deliverLocal([]byte(msg.Payload))
			}
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client] = struct{}{}
			s.mu.Unlock()
			monitoring.WSClients.Inc()
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *MessageHub) remove(client *Client) {
	s := h.getShard(client.UserID)
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.Send)
		monitoring.WSClients.Dec()
	}
	s.mu.Unlock()
}

// Broadcast 实现 Broadcaster
func (h *MessageHub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{Type: eventType, Data: data})
	if err != nil {
		logger.Log.Error("WebSocket event marshal failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	monitoring.WSEventsTotal.WithLabelValues(eventType).Inc()

	if h.Redis != nil {
		err := h.Redis.Publish(h.ctx, messageChannel, payload).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err))
	}
	h.deliverLocal(payload)
}

// deliverLocal 发送缓冲已满的客户端跳过本条事件
func (h *MessageHub) deliverLocal(payload []byte) {
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for client := range s.clients {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *MessageHub) ClientCount() int {
	n := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}

// Stop 关闭所有连接
func (h *MessageHub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		closed := 0
		for i := 0; i < shardCount; i++ {
			s := h.shards[i]
			s.mu.Lock()
			for client := range s.clients {
				close(client.Send)
				delete(s.clients, client)
				closed++
			}
			s.mu.Unlock()
		}
		monitoring.WSClients.Set(0)
		logger.Log.Info("MessageHub stopped", zap.Int("closedConnections", closed))
	})
}

func ServeWs(hub *MessageHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(5), 20),
	}

	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
