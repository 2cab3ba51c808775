package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) messagesCollection(chatID string) *firestore.CollectionRef {
	return r.client.Collection("chats").Doc(chatID).Collection("messages")
}

// GetOrCreate relies on the chat document id being the order id: concurrent
// callers race on the same document, and the transaction guarantees exactly
// one of them creates it while the rest read the stored copy back.
func (r *firestoreChatRepository) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error) {
	docRef := r.client.Collection("chats").Doc(chat.OrderID)

	var result entity.Chat
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}

			now := time.Now()
			chat.ID = chat.OrderID
			chat.CreatedAt = now
			chat.UpdatedAt = now
			result = *chat
			return tx.Create(docRef, chat)
		}

		if err := doc.DataTo(&result); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, errors.Internal("failed to get or create chat", err)
	}

	return &result, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("failed to parse chat data", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	// Firestore has no OR on distinct fields, so the two participant roles
	// are queried separately and merged.
	chats := make([]*entity.Chat, 0)

	for _, field := range []string{"customerId", "masterId"} {
		iter := r.client.Collection("chats").Where(field, "==", userID).Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, errors.Internal("failed to list chats", err)
			}

			var chat entity.Chat
			if err := doc.DataTo(&chat); err != nil {
				return nil, errors.Internal("failed to parse chat data", err)
			}
			chats = append(chats, &chat)
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})

	return chats, nil
}

func (r *firestoreChatRepository) SetRulesAccepted(ctx context.Context, chatID, userID string) error {
	docRef := r.client.Collection("chats").Doc(chatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			return err
		}

		var field string
		switch userID {
		case chat.CustomerID:
			field = "customerAcceptedRules"
		case chat.MasterID:
			field = "masterAcceptedRules"
		default:
			return errors.Forbidden("user is not a participant of this chat", nil)
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: field, Value: true},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return appErr
		}
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("failed to accept chat rules", err)
	}

	return nil
}

// CreateMessage assigns the message's Seq from the chat's counter and writes
// both documents in one transaction, so a committed message always carries a
// unique, strictly increasing Seq within its chat.
func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	chatRef := r.client.Collection("chats").Doc(message.ChatID)

	var result entity.Message
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(chatRef)
		if err != nil {
			return err
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			return err
		}

		message.Seq = chat.MessageSeq + 1
		message.CreatedAt = time.Now()
		result = *message

		msgRef := r.messagesCollection(message.ChatID).Doc(message.ID)
		if err := tx.Create(msgRef, message); err != nil {
			return err
		}

		return tx.Update(chatRef, []firestore.Update{
			{Path: "messageSeq", Value: message.Seq},
			{Path: "lastMessage", Value: message.Content},
			{Path: "lastMessageAt", Value: message.CreatedAt},
			{Path: "updatedAt", Value: message.CreatedAt},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Transient("failed to persist message", err)
	}

	return &result, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	iter := r.messagesCollection(chatID).OrderBy("seq", firestore.Asc).Documents(ctx)

	messages := make([]*entity.Message, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("failed to list messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

// MarkRead is idempotent: it only touches messages that are still unread, so
// repeated calls after the first are no-ops.
func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, viewerID string) error {
	iter := r.messagesCollection(chatID).Where("isRead", "==", false).Documents(ctx)

	bw := r.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("failed to query unread messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("failed to parse message data", err)
		}
		// The viewer's own messages stay untouched; read state only tracks
		// what the counterpart has seen.
		if message.SenderID == viewerID {
			continue
		}

		if _, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "isRead", Value: true},
		}); err != nil {
			return errors.Internal("failed to mark message as read", err)
		}
	}
	bw.End()

	return nil
}

func (r *firestoreChatRepository) CountUnread(ctx context.Context, chatID, viewerID string) (int, error) {
	iter := r.messagesCollection(chatID).Where("isRead", "==", false).Documents(ctx)

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, errors.Internal("failed to count unread messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return 0, errors.Internal("failed to parse message data", err)
		}
		if message.SenderID != viewerID {
			count++
		}
	}

	return count, nil
}
