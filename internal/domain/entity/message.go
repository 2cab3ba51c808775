package entity

import "time"

// Message is append-only: no edit, no delete. Seq is assigned at persistence
// time from the chat's counter and is strictly increasing within a chat; it
// is the sole ordering and deduplication key. CreatedAt is advisory only,
// sender clocks may be skewed.
type Message struct {
	ID       string `json:"id" firestore:"id"`
	ChatID   string `json:"chat_id" firestore:"chatId"`
	Seq      int64  `json:"seq" firestore:"seq"`
	SenderID string `json:"sender_id" firestore:"senderId"`
	Content  string `json:"content" firestore:"content"`
	Type     string `json:"type" firestore:"type"` // "text", "system"
	IsRead   bool   `json:"is_read" firestore:"isRead"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// SenderSystem marks lifecycle announcements injected by the server.
const SenderSystem = "system"
