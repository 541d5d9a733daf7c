package websocket

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeOpenThread     = "open_thread"
	MessageTypeCloseThread    = "close_thread"
	MessageTypeSendMessage    = "send_message"
	MessageTypeRetryMessage   = "retry_message"
	MessageTypeDiscardMessage = "discard_message"
	MessageTypeMarkRead       = "mark_read"
	MessageTypeDeleteMessage  = "delete_message"
	MessageTypeThreadOpened   = "thread_opened"
	MessageTypeThreadClosed   = "thread_closed"
	MessageTypeSnapshot       = "snapshot"
	MessageTypePresence       = "presence"
	MessageTypeError          = "error"
)

// WebSocket Message Structure
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client → server payloads

type OpenThreadData struct {
	SiteID      string `json:"site_id"`
	OtherUserID string `json:"other_user_id,omitempty"`
}

type ThreadData struct {
	Thread string `json:"thread"`
}

type SendMessageData struct {
	Thread         string   `json:"thread"`
	ClientID       string   `json:"client_id,omitempty"`
	Content        string   `json:"content"`
	Type           string   `json:"type,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	AttachmentURLs []string `json:"attachment_urls,omitempty"`
}

type ClientMessageData struct {
	Thread   string `json:"thread"`
	ClientID string `json:"client_id"`
}

type MessageRefData struct {
	Thread    string `json:"thread"`
	MessageID string `json:"message_id"`
}

// Server → client payloads

type ThreadOpenedData struct {
	Thread string               `json:"thread"`
	Scope  entity.Scope         `json:"scope"`
	Other  *entity.UserSnapshot `json:"other,omitempty"`
}

type MessageView struct {
	*entity.Message
	TimeLabel string `json:"time_label"`
}

type SnapshotData struct {
	Thread   string        `json:"thread"`
	Messages []MessageView `json:"messages"`
}

type PresenceData struct {
	Thread   string     `json:"thread"`
	UserID   string     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	Label    string     `json:"label"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type ErrorData struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	ClientID string `json:"client_id,omitempty"`
}

// handleClientMessage processes incoming WebSocket messages
func (c *Client) handleClientMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("WebSocket: Failed to unmarshal message from client %s: %v", c.UserID, err)
		c.sendError(errors.BadRequest("Invalid message format", err), "")
		return
	}

	logger.Debug("WebSocket: Received message type '%s' from client %s", msg.Type, c.UserID)

	switch msg.Type {
	case MessageTypePing:
		c.manager.presence.Heartbeat(c.ctx, c.UserID)
		c.sendFrame(MessageTypePong, map[string]string{"status": "alive"})

	case MessageTypeOpenThread:
		var data OpenThreadData
		if c.decode(msg.Data, &data) {
			c.handleOpenThread(data)
		}

	case MessageTypeCloseThread:
		var data ThreadData
		if c.decode(msg.Data, &data) {
			c.handleCloseThread(data)
		}

	case MessageTypeSendMessage:
		var data SendMessageData
		if c.decode(msg.Data, &data) {
			c.handleSendMessage(data)
		}

	case MessageTypeRetryMessage:
		var data ClientMessageData
		if c.decode(msg.Data, &data) {
			c.handleRetryMessage(data)
		}

	case MessageTypeDiscardMessage:
		var data ClientMessageData
		if c.decode(msg.Data, &data) {
			c.handleDiscardMessage(data)
		}

	case MessageTypeMarkRead:
		var data MessageRefData
		if c.decode(msg.Data, &data) {
			c.handleMarkRead(data)
		}

	case MessageTypeDeleteMessage:
		var data MessageRefData
		if c.decode(msg.Data, &data) {
			c.handleDeleteMessage(data)
		}

	default:
		logger.Warn("WebSocket: Unknown message type '%s' from client %s", msg.Type, c.UserID)
		c.sendError(errors.BadRequest("Unknown message type", nil), "")
	}
}

func (c *Client) decode(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		c.sendError(errors.BadRequest("Missing message data", nil), "")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.sendError(errors.BadRequest("Invalid message data", err), "")
		return false
	}
	return true
}

func (c *Client) handleOpenThread(data OpenThreadData) {
	if data.SiteID == "" {
		c.sendError(errors.BadRequest("site_id is required", nil), "")
		return
	}

	scope := entity.GroupScope(data.SiteID)
	var other *entity.UserSnapshot
	if data.OtherUserID != "" {
		handle, err := c.manager.threads.ResolveOrOpenThread(c.ctx, c.user, data.SiteID, data.OtherUserID)
		if err != nil {
			c.sendError(err, "")
			return
		}
		scope = handle.Scope
		snapshot := handle.Other
		other = &snapshot
	}
	key := scope.Key()

	if existing := c.thread(key); existing != nil {
		c.sendFrame(MessageTypeThreadOpened, ThreadOpenedData{Thread: key, Scope: existing.scope, Other: existing.other})
		c.sendSnapshot(key, existing.session.Messages())
		return
	}

	view := &threadView{scope: scope, other: other}
	session, err := c.manager.messages.OpenSession(c.ctx, c.user, scope, func(messages []*entity.Message) {
		if view.ready.Load() {
			c.sendSnapshot(key, messages)
		}
	})
	if err != nil {
		c.sendError(err, "")
		return
	}
	view.session = session

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		session.Close()
		return
	}
	c.threads[key] = view
	c.mu.Unlock()

	c.sendFrame(MessageTypeThreadOpened, ThreadOpenedData{Thread: key, Scope: scope, Other: other})
	view.ready.Store(true)
	c.sendSnapshot(key, session.Messages())

	if other != nil {
		otherID := other.ID
		stop := c.manager.presence.Track(c.ctx, otherID, func(p entity.Presence, label string) {
			c.sendFrame(MessageTypePresence, PresenceData{
				Thread:   key,
				UserID:   otherID,
				IsOnline: p.IsOnline,
				Label:    label,
				LastSeen: p.LastSeen,
			})
		})

		c.mu.Lock()
		if c.closed || c.threads[key] != view {
			c.mu.Unlock()
			stop()
			return
		}
		view.stopPresence = stop
		c.mu.Unlock()
	}
}

func (c *Client) handleCloseThread(data ThreadData) {
	c.mu.Lock()
	view := c.threads[data.Thread]
	delete(c.threads, data.Thread)
	c.mu.Unlock()

	if view == nil {
		c.sendError(errors.NotFound("Thread", nil), "")
		return
	}
	view.close()
	c.sendFrame(MessageTypeThreadClosed, ThreadData{Thread: data.Thread})
}

func (c *Client) handleSendMessage(data SendMessageData) {
	view := c.requireThread(data.Thread)
	if view == nil {
		return
	}

	input := usecase.SendInput{
		ClientID:       data.ClientID,
		Content:        data.Content,
		Type:           entity.MessageType(data.Type),
		Priority:       entity.Priority(data.Priority),
		AttachmentURLs: data.AttachmentURLs,
	}

	// The write runs beside the read loop; its progress shows up in snapshots
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if _, err := view.session.Send(c.ctx, input); err != nil {
			c.sendError(err, data.ClientID)
		}
	}()
}

func (c *Client) handleRetryMessage(data ClientMessageData) {
	view := c.requireThread(data.Thread)
	if view == nil {
		return
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if _, err := view.session.Retry(c.ctx, data.ClientID); err != nil {
			c.sendError(err, data.ClientID)
		}
	}()
}

func (c *Client) handleDiscardMessage(data ClientMessageData) {
	view := c.requireThread(data.Thread)
	if view == nil {
		return
	}
	if !view.session.Discard(data.ClientID) {
		c.sendError(errors.NotFound("Pending message", nil), data.ClientID)
	}
}

func (c *Client) handleMarkRead(data MessageRefData) {
	view := c.requireThread(data.Thread)
	if view == nil {
		return
	}
	if err := c.manager.messages.MarkRead(c.ctx, c.user, view.scope, data.MessageID); err != nil {
		c.sendError(err, "")
	}
}

func (c *Client) handleDeleteMessage(data MessageRefData) {
	view := c.requireThread(data.Thread)
	if view == nil {
		return
	}
	if err := c.manager.messages.Delete(c.ctx, c.user, view.scope, data.MessageID); err != nil {
		c.sendError(err, "")
	}
}

func (c *Client) requireThread(key string) *threadView {
	view := c.thread(key)
	if view == nil {
		c.sendError(errors.BadRequest("Thread is not open", nil), "")
	}
	return view
}

func (c *Client) sendSnapshot(key string, messages []*entity.Message) {
	now := time.Now()
	views := make([]MessageView, len(messages))
	for i, msg := range messages {
		views[i] = MessageView{Message: msg, TimeLabel: usecase.FormatMessageTime(msg, now)}
	}
	c.sendFrame(MessageTypeSnapshot, SnapshotData{Thread: key, Messages: views})
}

func (c *Client) sendError(err error, clientID string) {
	data := ErrorData{Message: "Internal server error", Code: errors.CodeOf(err), ClientID: clientID}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		data.Message = appErr.Message
	}
	c.sendFrame(MessageTypeError, data)
}
