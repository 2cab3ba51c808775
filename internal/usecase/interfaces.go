package usecase

import (
	"time"

	"furnimarket/internal/infrastructure/websocket"
)

// EventPublisher is the advisory push side of the system. Implementations
// never guarantee delivery; the repositories remain the source of truth and
// clients reconcile against them.
type EventPublisher interface {
	PublishToChat(chatID string, event websocket.Event)
	SendToUser(userID string, event websocket.Event)
}

// RateLimiter gates high-frequency user actions.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}
