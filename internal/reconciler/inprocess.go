package reconciler

import (
	"context"

	"github.com/google/uuid"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/internal/usecase"
)

// UseCaseStore adapts the chat use case to the reconciler's Store interface
// for in-process contexts such as the server-side badge observer.
type UseCaseStore struct {
	chats *usecase.ChatUseCase
}

func NewUseCaseStore(chats *usecase.ChatUseCase) *UseCaseStore {
	return &UseCaseStore{chats: chats}
}

func (s *UseCaseStore) ListMessages(ctx context.Context, session Session, chatID string) ([]*entity.Message, error) {
	return s.chats.ListMessages(ctx, session.UserID, chatID)
}

func (s *UseCaseStore) SendMessage(ctx context.Context, session Session, chatID, content string) (*entity.Message, error) {
	return s.chats.SendMessage(ctx, session.UserID, chatID, content)
}

func (s *UseCaseStore) MarkChatRead(ctx context.Context, session Session, chatID string) error {
	return s.chats.MarkChatRead(ctx, session.UserID, chatID)
}

func (s *UseCaseStore) ListChats(ctx context.Context, session Session) ([]ChatEntry, error) {
	summaries, err := s.chats.ListChatsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	entries := make([]ChatEntry, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, ChatEntry{
			ChatID:          summary.Chat.ID,
			OrderID:         summary.Chat.OrderID,
			OrderStatus:     summary.OrderStatus,
			CounterpartID:   summary.CounterpartID,
			CounterpartName: summary.CounterpartName,
			LastMessage:     summary.Chat.LastMessage,
			Unread:          summary.UnreadCount,
		})
	}
	return entries, nil
}

// ManagerBus adapts the websocket manager to the reconciler's Bus interface
// through an in-process client registration (nil Conn, consumed via its Send
// channel).
type ManagerBus struct {
	manager *websocket.Manager
	client  *websocket.Client
}

// NewManagerBus registers an in-process listener for the user and returns
// the bus together with the frame channel to consume.
func NewManagerBus(manager *websocket.Manager, userID string) (*ManagerBus, <-chan []byte) {
	client := &websocket.Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
	manager.Register <- client

	return &ManagerBus{
		manager: manager,
		client:  client,
	}, client.Send
}

func (b *ManagerBus) Join(chatID string) {
	b.manager.JoinRoom(chatID, b.client.ID)
}

func (b *ManagerBus) Leave(chatID string) {
	b.manager.LeaveRoom(chatID, b.client.ID)
}

// Publish is a no-op in process: the use case behind UseCaseStore already
// publishes on persist, so publishing here would double-deliver.
func (b *ManagerBus) Publish(chatID string, event websocket.Event) {}

// Close unregisters the in-process listener.
func (b *ManagerBus) Close() {
	b.manager.Unregister <- b.client
}
