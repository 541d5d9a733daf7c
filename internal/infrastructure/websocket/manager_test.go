package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitechat/internal/adapter/repository"
	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
)

type testFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type testEnv struct {
	server  *httptest.Server
	manager *Manager
	users   *repository.MemoryUserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := repository.NewMemoryUserRepository(
		&entity.User{ID: "U1", Name: "Ana", Role: entity.RoleWorker, SiteIDs: []string{"S1"}},
		&entity.User{ID: "U2", Name: "Bruno", Role: entity.RoleAdmin, SiteIDs: []string{"S1"}},
	)
	messageRepo := repository.NewMemoryMessageRepository()
	presenceRepo := repository.NewMemoryPresenceRepository()

	messages := usecase.NewMessageUseCase(messageRepo, users, repository.NewMemoryNotificationRepository(), nil, usecase.MessageOptions{
		SendTimeout:    time.Second,
		PendingTimeout: 10 * time.Second,
	})
	threads := usecase.NewThreadUseCase(messageRepo, users)
	presence := usecase.NewPresenceTracker(presenceRepo, usecase.PresenceOptions{Interval: time.Hour})

	manager := NewManager(messages, threads, presence, ManagerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.Start(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := users.GetByID(r.Context(), r.URL.Query().Get("uid"))
		if err != nil {
			http.Error(w, "unknown user", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(conn, user)
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, manager: manager, users: users}
}

func (e *testEnv) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, frameType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": frameType, "data": data}))
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(testFrame) bool) testFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame testFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

func ofType(frameType string) func(testFrame) bool {
	return func(f testFrame) bool { return f.Type == frameType }
}

func TestWebSocket_PingPong(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "U1")

	write(t, conn, MessageTypePing, map[string]string{})
	readUntil(t, conn, ofType(MessageTypePong))
}

func TestWebSocket_GroupSendRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "U1")

	write(t, conn, MessageTypeOpenThread, OpenThreadData{SiteID: "S1"})
	opened := readUntil(t, conn, ofType(MessageTypeThreadOpened))

	var openedData ThreadOpenedData
	require.NoError(t, json.Unmarshal(opened.Data, &openedData))
	assert.Equal(t, "group:S1", openedData.Thread)

	write(t, conn, MessageTypeSendMessage, SendMessageData{Thread: "group:S1", ClientID: "c1", Content: "Oi time"})

	frame := readUntil(t, conn, func(f testFrame) bool {
		if f.Type != MessageTypeSnapshot {
			return false
		}
		var snap struct {
			Messages []struct {
				ClientID string `json:"client_id"`
				State    string `json:"state"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(f.Data, &snap)
		return len(snap.Messages) == 1 && snap.Messages[0].State == string(entity.MessageStateConfirmed)
	})

	var snap struct {
		Thread   string `json:"thread"`
		Messages []struct {
			ID        string `json:"id"`
			ClientID  string `json:"client_id"`
			Content   string `json:"content"`
			Type      string `json:"type"`
			Priority  string `json:"priority"`
			TimeLabel string `json:"time_label"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &snap))
	require.Len(t, snap.Messages, 1)
	msg := snap.Messages[0]
	assert.Equal(t, "c1", msg.ClientID)
	assert.Equal(t, "Oi time", msg.Content)
	assert.Equal(t, "general", msg.Type)
	assert.Equal(t, "medium", msg.Priority)
	assert.False(t, strings.HasPrefix(msg.ID, entity.PendingIDPrefix))
	assert.NotEqual(t, usecase.StatusSending, msg.TimeLabel)
}

func TestWebSocket_DirectThreadReportsPresence(t *testing.T) {
	env := newTestEnv(t)
	_ = env.dial(t, "U2")
	require.Eventually(t, func() bool { return env.manager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	conn := env.dial(t, "U1")

	write(t, conn, MessageTypeOpenThread, OpenThreadData{SiteID: "S1", OtherUserID: "U2"})
	frame := readUntil(t, conn, ofType(MessageTypePresence))

	var presence PresenceData
	require.NoError(t, json.Unmarshal(frame.Data, &presence))
	assert.Equal(t, "direct:S1:U1_U2", presence.Thread)
	assert.Equal(t, "U2", presence.UserID)
	assert.True(t, presence.IsOnline)
	assert.Equal(t, usecase.StatusOnline, presence.Label)
}

func TestWebSocket_ErrorsAreFramed(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "U1")

	write(t, conn, MessageTypeSendMessage, SendMessageData{Thread: "group:S1", Content: "hi"})
	frame := readUntil(t, conn, ofType(MessageTypeError))

	var data ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "BAD_REQUEST", data.Code)

	write(t, conn, MessageTypeOpenThread, OpenThreadData{SiteID: "S9"})
	frame = readUntil(t, conn, ofType(MessageTypeError))
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "FORBIDDEN", data.Code)
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "U1")

	write(t, conn, MessageTypeOpenThread, OpenThreadData{SiteID: "S1"})
	readUntil(t, conn, ofType(MessageTypeThreadOpened))
	assert.Eventually(t, func() bool { return env.manager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.manager.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_OfflineOnlyAfterLastConnection(t *testing.T) {
	env := newTestEnv(t)
	first := env.dial(t, "U2")
	second := env.dial(t, "U2")
	require.Eventually(t, func() bool { return env.manager.Connections("U2") == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return env.manager.Connections("U2") == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return env.manager.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, env.manager.presence.GetStatus(context.Background(), "U2").IsOnline, "another tab is still open")

	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool {
		return !env.manager.presence.GetStatus(context.Background(), "U2").IsOnline
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, env.manager.Connections("U2"))
}
