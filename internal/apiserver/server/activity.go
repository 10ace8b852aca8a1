package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/pkg/logging"
)

const (
	activityBacklog = 20
	sendBuffer      = 32
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
)

// CheckOrigin 为 nil 时 gorilla 只接受同源请求（会话 Cookie 鉴权需要）
var activityUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ActivityMessage WebSocket 消息
type ActivityMessage struct {
	Type      string      `json:"type"` // backlog, activity
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type activityClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ActivityHub 后台动态实时推送
//
// 订阅一次 ActivityBus，广播给所有已连接的管理员。
// 慢客户端的发送缓冲满时丢弃消息，不阻塞广播。
type ActivityHub struct {
	bus     eventbus.ActivityBus
	metrics *Metrics
	log     *logging.Logger

	clients map[*activityClient]struct{}
	mu      sync.RWMutex
}

// NewActivityHub 创建推送中心
func NewActivityHub(bus eventbus.ActivityBus, metrics *Metrics, log *logging.Logger) *ActivityHub {
	if log == nil {
		log = logging.Nop()
	}
	return &ActivityHub{
		bus:     bus,
		metrics: metrics,
		log:     log.Named("activity"),
		clients: make(map[*activityClient]struct{}),
	}
}

// Run 订阅动态流并广播，ctx 结束或订阅关闭时返回
func (h *ActivityHub) Run(ctx context.Context) error {
	events, err := h.bus.SubscribeActivity(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		h.broadcast(ActivityMessage{Type: "activity", Data: ev, Timestamp: time.Now()})
	}
	return ctx.Err()
}

// ClientCount 当前连接数
func (h *ActivityHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket 处理 WebSocket 连接
//
// 路由: GET /ws/admin/activity（调用方负责鉴权）
// 连接后先推送最近的动态（backlog），之后推送新动态。
func (h *ActivityHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := activityUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &activityClient{conn: conn, send: make(chan []byte, sendBuffer)}
	recent, err := h.bus.RecentActivity(r.Context(), activityBacklog)
	if err != nil {
		h.log.Warn("load recent activity failed", zap.Error(err))
		recent = []*eventbus.ActivityEvent{}
	}
	if data, ok := h.encode(ActivityMessage{Type: "backlog", Data: recent, Timestamp: time.Now()}); ok {
		c.send <- data
	}

	h.register(c)
	go h.writePump(c)
	h.readPump(c)
	h.unregister(c)
}

func (h *ActivityHub) register(c *activityClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnectionOpened()
	}
	h.log.Debug("client connected", zap.Int("total", h.ClientCount()))
}

// unregister 移除客户端并关闭发送通道（writePump 随之退出并关闭连接）
func (h *ActivityHub) unregister(c *activityClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnectionClosed()
	}
}

func (h *ActivityHub) encode(msg ActivityMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal message failed", zap.Error(err))
		return nil, false
	}
	return data, true
}

func (h *ActivityHub) broadcast(msg ActivityMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
			if h.metrics != nil {
				h.metrics.RecordWSMessage(msg.Type)
			}
		default:
			h.log.Warn("client send buffer full, dropping message")
		}
	}
}

// readPump 只处理控制帧与关闭；客户端不发送业务消息
func (h *ActivityHub) readPump(c *activityClient) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *ActivityHub) writePump(c *activityClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
