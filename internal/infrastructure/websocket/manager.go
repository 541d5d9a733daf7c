package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
	"sitechat/pkg/logger"
	"sitechat/pkg/metrics"
)

type ManagerOptions struct {
	// SweepInterval is how often open threads fail overdue pending messages.
	SweepInterval time.Duration
	// HeartbeatInterval is how often a connected user is reported alive.
	HeartbeatInterval time.Duration
}

// Manager tracks the connected clients. Every client owns its thread views;
// nothing is shared between connections.
type Manager struct {
	messages *usecase.MessageUseCase
	threads  *usecase.ThreadUseCase
	presence *usecase.PresenceTracker

	sweepInterval     time.Duration
	heartbeatInterval time.Duration

	clients     map[*Client]struct{}
	connections map[string]int
	Register    chan *Client
	Unregister  chan *Client
	mutex       sync.RWMutex
	ctx         context.Context
	stopped     chan struct{}
}

func NewManager(messages *usecase.MessageUseCase, threads *usecase.ThreadUseCase, presence *usecase.PresenceTracker, opts ManagerOptions) *Manager {
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = 5 * time.Second
	}
	heartbeat := opts.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	return &Manager{
		messages:          messages,
		threads:           threads,
		presence:          presence,
		sweepInterval:     sweep,
		heartbeatInterval: heartbeat,
		clients:           make(map[*Client]struct{}),
		connections:       make(map[string]int),
		Register:          make(chan *Client),
		Unregister:        make(chan *Client),
		ctx:               context.Background(),
		stopped:           make(chan struct{}),
	}
}

// Start runs the registration loop until ctx ends, then disconnects every client.
func (m *Manager) Start(ctx context.Context) {
	m.mutex.Lock()
	m.ctx = ctx
	m.mutex.Unlock()

	go func() {
		defer close(m.stopped)
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = struct{}{}
				m.mutex.Unlock()
				metrics.WebSocketConnections.Inc()
				logger.Info("Client registered: %s (%s)", client.UserID, client.ID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client]; ok {
					delete(m.clients, client)
					metrics.WebSocketConnections.Dec()
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s (%s)", client.UserID, client.ID)

			case <-ctx.Done():
				m.mutex.Lock()
				clients := make([]*Client, 0, len(m.clients))
				for client := range m.clients {
					clients = append(clients, client)
				}
				m.clients = make(map[*Client]struct{})
				m.mutex.Unlock()

				for _, client := range clients {
					client.Close()
				}
				return
			}
		}
	}()
}

func (m *Manager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// Serve takes over an upgraded connection for user and returns immediately.
func (m *Manager) Serve(conn *websocket.Conn, user *entity.User) *Client {
	m.mutex.RLock()
	parent := m.ctx
	m.mutex.RUnlock()

	ctx, cancel := context.WithCancel(parent)
	client := &Client{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		user:    user,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		manager: m,
		ctx:     ctx,
		cancel:  cancel,
		threads: make(map[string]*threadView),
	}

	m.connect(user.ID)
	m.presence.Heartbeat(ctx, user.ID)
	if !m.register(client) {
		m.disconnect(user.ID)
		client.Close()
		return client
	}

	go client.writePump()
	go client.maintain()
	go client.readPump()
	return client
}

func (m *Manager) register(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.stopped:
		return false
	}
}

func (m *Manager) unregister(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.stopped:
	}
}

func (m *Manager) connect(userID string) {
	m.mutex.Lock()
	m.connections[userID]++
	m.mutex.Unlock()
}

// disconnect reports whether userID has no connection left.
func (m *Manager) disconnect(userID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.connections[userID]--
	if m.connections[userID] > 0 {
		return false
	}
	delete(m.connections, userID)
	return true
}

// Connections is the number of open connections of userID.
func (m *Manager) Connections(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.connections[userID]
}
