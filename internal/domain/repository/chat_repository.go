package repository

import (
	"context"

	"furnimarket/internal/domain/entity"
)

type ChatRepository interface {
	// GetOrCreate returns the chat for chat.OrderID, creating it when absent.
	// The operation is atomic and idempotent; the stored chat wins over the
	// proposed one.
	GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error)
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// ListByUserID returns the user's chats ordered by last activity,
	// most recent first.
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error)
	// SetRulesAccepted flips the acceptance flag belonging to userID. The
	// write touches only that flag, never the rest of the chat document.
	SetRulesAccepted(ctx context.Context, chatID, userID string) error

	// CreateMessage persists the message and assigns its Seq from the chat's
	// counter in the same transaction.
	CreateMessage(ctx context.Context, message *entity.Message) (*entity.Message, error)
	// ListMessages returns the full history ordered by Seq ascending.
	ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error)
	// MarkRead flags every unread message not sent by viewerID as read.
	// Calling it again is a no-op.
	MarkRead(ctx context.Context, chatID, viewerID string) error
	// CountUnread counts messages with IsRead false whose sender is not
	// viewerID.
	CountUnread(ctx context.Context, chatID, viewerID string) (int, error)
}
