package realtime

import (
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// 单次写超时
	writeWait = 10 * time.Second

	// Pong 等待超时
	pongWait = 60 * time.Second

	// Ping 周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	maxInboundSize = 4096

	// 每连接发送缓冲，写满视为瞬态投递失败
	sendBuffer = 256
)

// Conn 一条活跃的 WS 传输会话，归属于单个用户身份
// rooms 与 closed 由 Hub 的互斥锁保护
type Conn struct {
	ID     string
	UserID uint64

	sock *websocket.Conn
	send chan []byte

	rooms  map[uint64]struct{}
	closed bool
}

// NewConn 构造连接对象，sock 可为空（仅在测试中直接读取 send 缓冲）
func NewConn(sock *websocket.Conn, userID uint64) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uint64]struct{}),
	}
}

// ReadPump 读循环：解析上行事件并交给 handler，连接断开时负责注销
// 每条连接只允许一个读 goroutine
func (c *Conn) ReadPump(hub *Hub, handler func(c *Conn, ev *InboundEvent)) {
	defer func() {
		hub.Unregister(c)
		_ = c.sock.Close()
	}()

	c.sock.SetReadLimit(maxInboundSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WS 读取异常中断", "userID", c.UserID, "connID", c.ID, "err", err)
			}
			return
		}

		ev, err := DecodeInbound(raw)
		if err != nil {
			log.Warn("WS 上行事件解析失败", "userID", c.UserID, "err", err)
			continue
		}
		handler(c, ev)
	}
}

// WritePump 写循环：消费 send 缓冲并周期性发送 Ping
// 每条连接只允许一个写 goroutine
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已注销该连接
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("WS 推送失败", "userID", c.UserID, "connID", c.ID, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
