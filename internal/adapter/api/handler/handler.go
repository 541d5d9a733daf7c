package handler

import (
	ws "sitechat/internal/infrastructure/websocket"
	"sitechat/internal/usecase"
)

var (
	messageHandler      *MessageHandler
	threadHandler       *ThreadHandler
	fileHandler         *FileHandler
	presenceHandler     *PresenceHandler
	notificationHandler *NotificationHandler
	webSocketHandler    *WebSocketHandler
	healthHandler       *HealthHandler
)

func Setup(
	messageUseCase *usecase.MessageUseCase,
	threadUseCase *usecase.ThreadUseCase,
	presenceTracker *usecase.PresenceTracker,
	wsManager *ws.Manager,
	storeDriver string,
	allowedOrigins []string,
) {
	messageHandler = NewMessageHandler(messageUseCase)
	threadHandler = NewThreadHandler(threadUseCase)
	fileHandler = NewFileHandler(messageUseCase)
	presenceHandler = NewPresenceHandler(presenceTracker)
	notificationHandler = NewNotificationHandler(messageUseCase)
	webSocketHandler = NewWebSocketHandler(wsManager, allowedOrigins)
	healthHandler = NewHealthHandler(storeDriver, wsManager)
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetThreadHandler() *ThreadHandler {
	return threadHandler
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

func GetPresenceHandler() *PresenceHandler {
	return presenceHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
