package websocket

import (
	"time"

	"furnimarket/internal/domain/entity"
)

// Event types pushed to chat rooms. The bus only signals that state changed;
// the store remains the authority. Every payload carries the chat id so a
// listener never has to guess which conversation an event belongs to.
const (
	EventNewMessage         = "new_message"
	EventMessagesRead       = "messages_read"
	EventOrderStatusChanged = "order_status_changed"
	EventUnreadChanged      = "unread_changed"
)

// Inbound client message types.
const (
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeJoinRoom  = "join_room"
	MessageTypeLeaveRoom = "leave_room"
	MessageTypeMarkRead  = "mark_read"
)

// Event is the wire payload fanned out to room members.
type Event struct {
	Type        string          `json:"type"`
	ChatID      string          `json:"chat_id"`
	Message     *entity.Message `json:"message,omitempty"`
	ReaderID    string          `json:"reader_id,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	OrderStatus string          `json:"order_status,omitempty"`
	UnreadTotal int             `json:"unread_total,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// NewMessageEvent builds the push signal for a freshly persisted message.
func NewMessageEvent(message *entity.Message) Event {
	return Event{
		Type:      EventNewMessage,
		ChatID:    message.ChatID,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessagesReadEvent signals that readerID marked the chat as read.
func MessagesReadEvent(chatID, readerID string) Event {
	return Event{
		Type:      EventMessagesRead,
		ChatID:    chatID,
		ReaderID:  readerID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// OrderStatusChangedEvent signals an order lifecycle transition. The chat id
// equals the order id by construction, but both are carried explicitly.
func OrderStatusChangedEvent(orderID, status string) Event {
	return Event{
		Type:        EventOrderStatusChanged,
		ChatID:      orderID,
		OrderID:     orderID,
		OrderStatus: status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// UnreadChangedEvent carries the viewer's new aggregate unread count.
func UnreadChangedEvent(chatID string, total int) Event {
	return Event{
		Type:        EventUnreadChanged,
		ChatID:      chatID,
		UnreadTotal: total,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// WSMessage is the envelope for inbound client frames.
type WSMessage struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
}
