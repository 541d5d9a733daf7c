package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
	"sitechat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBufferSize = 256
	offlineTimeout = 5 * time.Second
)

// threadView is one open thread of a connection.
type threadView struct {
	scope        entity.Scope
	other        *entity.UserSnapshot
	session      *usecase.ChatSession
	stopPresence func()
	ready        atomic.Bool
}

// Client is one WebSocket connection of a user.
type Client struct {
	ID     string
	UserID string

	user    *entity.User
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	manager *Manager
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	threads  map[string]*threadView
	closed   bool
	inflight sync.WaitGroup
}

// Close drops the connection. Cleanup runs when the read loop notices.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error from client %s: %v", c.UserID, err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleClientMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write to client %s failed: %v", c.UserID, err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// maintain fails overdue pending messages and keeps the user's presence alive.
func (c *Client) maintain() {
	sweep := time.NewTicker(c.manager.sweepInterval)
	defer sweep.Stop()
	heartbeat := time.NewTicker(c.manager.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-sweep.C:
			for _, view := range c.openThreads() {
				view.session.Sweep()
			}
		case <-heartbeat.C:
			c.manager.presence.Heartbeat(c.ctx, c.UserID)
		}
	}
}

// shutdown releases every session and tracker the connection owns.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	threads := c.threads
	c.threads = make(map[string]*threadView)
	c.mu.Unlock()

	c.cancel()
	for _, view := range threads {
		view.close()
	}
	c.inflight.Wait()

	if c.manager.disconnect(c.UserID) {
		ctx, cancel := context.WithTimeout(context.Background(), offlineTimeout)
		c.manager.presence.MarkOffline(ctx, c.UserID)
		// A connection opened meanwhile keeps the user online.
		if c.manager.Connections(c.UserID) > 0 {
			c.manager.presence.Heartbeat(ctx, c.UserID)
		}
		cancel()
	}

	c.manager.unregister(c)
	c.Close()
}

func (c *Client) openThreads() []*threadView {
	c.mu.Lock()
	defer c.mu.Unlock()
	views := make([]*threadView, 0, len(c.threads))
	for _, view := range c.threads {
		views = append(views, view)
	}
	return views
}

func (c *Client) thread(key string) *threadView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threads[key]
}

func (v *threadView) close() {
	if v.stopPresence != nil {
		v.stopPresence()
	}
	v.session.Close()
}

// sendFrame queues a frame. A client that cannot keep up is disconnected.
func (c *Client) sendFrame(frameType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("WebSocket: Failed to marshal %s frame for client %s: %v", frameType, c.UserID, err)
		return
	}

	select {
	case <-c.done:
	case c.send <- payload:
	default:
		logger.Warn("WebSocket: Client %s send buffer full, closing connection", c.UserID)
		c.Close()
	}
}
