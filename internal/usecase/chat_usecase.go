package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/pkg/errors"
	"furnimarket/pkg/logger"
)

type ChatUseCase struct {
	chatRepo  repository.ChatRepository
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	bus       EventPublisher
	limiter   RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	bus EventPublisher,
	limiter RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:  chatRepo,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		bus:       bus,
		limiter:   limiter,
	}
}

// ChatSummary is a directory entry: the chat plus everything a chat list
// screen needs without further round trips.
type ChatSummary struct {
	Chat            *entity.Chat `json:"chat"`
	CounterpartID   string       `json:"counterpart_id"`
	CounterpartName string       `json:"counterpart_name"`
	OrderStatus     string       `json:"order_status"`
	UnreadCount     int          `json:"unread_count"`
}

// GetOrCreateChat opens the single chat bound to an order. Only the order's
// customer and its assigned master may open it, and not before a master has
// been assigned. Repeated calls return the same chat.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, userID, orderID string) (*entity.Chat, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.MasterID == "" {
		return nil, errors.InvalidState("chat opens once a master is assigned to the order", nil)
	}
	if userID != order.CustomerID && userID != order.MasterID {
		return nil, errors.Forbidden("you are not a participant of this order", nil)
	}

	if allowed, wait := uc.limiter.Allow(userID, "open_chat"); !allowed {
		return nil, errors.TooManyRequests("too many chat open attempts", wait.Seconds())
	}

	return uc.chatRepo.GetOrCreate(ctx, &entity.Chat{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		MasterID:   order.MasterID,
	})
}

// ensureChat is the internal variant used by order lifecycle transitions; it
// skips the requester gate and the rate limiter.
func (uc *ChatUseCase) ensureChat(ctx context.Context, order *entity.Order) (*entity.Chat, error) {
	return uc.chatRepo.GetOrCreate(ctx, &entity.Chat{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		MasterID:   order.MasterID,
	})
}

// AcceptChatRules records that the caller agreed to the conversation rules.
// Sending is blocked for a participant until their flag is set.
func (uc *ChatUseCase) AcceptChatRules(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("you are not a participant of this chat", nil)
	}

	if err := uc.chatRepo.SetRulesAccepted(ctx, chatID, userID); err != nil {
		return nil, err
	}

	return uc.chatRepo.GetByID(ctx, chatID)
}

// SendMessage persists a message and then signals the chat room. The write is
// the operation; the publish is advisory and its failure is never surfaced.
// Messages keep flowing after the order completes, history stays open.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, chatID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("message content must not be empty", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("you are not a participant of this chat", nil)
	}
	if !chat.AcceptedRules(userID) {
		return nil, errors.Forbidden("accept the chat rules before sending messages", nil)
	}

	if allowed, wait := uc.limiter.Allow(userID, "send_message"); !allowed {
		return nil, errors.TooManyRequests("message rate limit exceeded", wait.Seconds())
	}

	message, err := uc.chatRepo.CreateMessage(ctx, &entity.Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: userID,
		Content:  content,
		Type:     entity.MessageTypeText,
		IsRead:   false,
	})
	if err != nil {
		return nil, err
	}

	event := websocket.NewMessageEvent(message)
	uc.bus.PublishToChat(chatID, event)
	// The counterpart also gets the signal outside the room so chat lists
	// and badges update without the chat being open.
	uc.bus.SendToUser(chat.CounterpartID(userID), event)

	return message, nil
}

// SendSystemMessage injects a lifecycle announcement authored by nobody.
// System messages bypass the rules gate and the rate limiter.
func (uc *ChatUseCase) SendSystemMessage(ctx context.Context, chatID, content string) (*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	message, err := uc.chatRepo.CreateMessage(ctx, &entity.Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: entity.SenderSystem,
		Content:  content,
		Type:     entity.MessageTypeSystem,
		IsRead:   false,
	})
	if err != nil {
		return nil, err
	}

	event := websocket.NewMessageEvent(message)
	uc.bus.PublishToChat(chatID, event)
	for _, participantID := range chat.ParticipantIDs() {
		uc.bus.SendToUser(participantID, event)
	}

	return message, nil
}

// ListMessages returns the chat's full history ordered by sequence number.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string) ([]*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("you are not a participant of this chat", nil)
	}

	return uc.chatRepo.ListMessages(ctx, chatID)
}

// MarkChatRead marks all counterpart messages in the chat as read. The call
// is idempotent; the messages_read publish always follows so peers and the
// caller's other devices converge.
func (uc *ChatUseCase) MarkChatRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("you are not a participant of this chat", nil)
	}

	if err := uc.chatRepo.MarkRead(ctx, chatID, userID); err != nil {
		return err
	}

	event := websocket.MessagesReadEvent(chatID, userID)
	uc.bus.PublishToChat(chatID, event)
	uc.bus.SendToUser(userID, event)
	uc.bus.SendToUser(chat.CounterpartID(userID), event)

	return nil
}

// ListChatsForUser returns the user's chat directory ordered by last
// activity. Counterpart profile, order status, and unread counts are fetched
// concurrently per chat.
func (uc *ChatUseCase) ListChatsForUser(ctx context.Context, userID string) ([]*ChatSummary, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ChatSummary, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			summary := &ChatSummary{
				Chat:          chat,
				CounterpartID: chat.CounterpartID(userID),
			}

			counterpart, err := uc.userRepo.GetByID(gctx, summary.CounterpartID)
			if err == nil {
				summary.CounterpartName = counterpart.Username
			} else {
				logger.Warn("chat list: failed to load counterpart %s: %v", summary.CounterpartID, err)
			}

			order, err := uc.orderRepo.GetByID(gctx, chat.OrderID)
			if err != nil {
				return err
			}
			summary.OrderStatus = order.Status

			unread, err := uc.chatRepo.CountUnread(gctx, chat.ID, userID)
			if err != nil {
				return err
			}
			summary.UnreadCount = unread

			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// GetUnreadTotal returns the aggregate unread badge count across all of the
// user's chats. Derived from message state, never stored.
func (uc *ChatUseCase) GetUnreadTotal(ctx context.Context, userID string) (int, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	counts := make([]int, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			unread, err := uc.chatRepo.CountUnread(gctx, chat.ID, userID)
			if err != nil {
				return err
			}
			counts[i] = unread
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	return total, nil
}

// announceStatus posts a system message and a status event for an order
// transition. Both are best-effort.
func (uc *ChatUseCase) announceStatus(ctx context.Context, order *entity.Order, text string) {
	uc.bus.PublishToChat(order.ID, websocket.OrderStatusChangedEvent(order.ID, order.Status))
	for _, participantID := range []string{order.CustomerID, order.MasterID} {
		if participantID != "" {
			uc.bus.SendToUser(participantID, websocket.OrderStatusChangedEvent(order.ID, order.Status))
		}
	}

	if order.MasterID == "" {
		return
	}
	if _, err := uc.ensureChat(ctx, order); err != nil {
		logger.Warn("failed to ensure chat for order %s: %v", order.ID, err)
		return
	}
	if _, err := uc.SendSystemMessage(ctx, order.ID, text); err != nil {
		logger.Warn("failed to post system message for order %s: %v", order.ID, err)
	}
}

// AnnounceOrderStatus is the order lifecycle's hook into the chat: it posts
// the transition as a system message and pushes order_status_changed.
func (uc *ChatUseCase) AnnounceOrderStatus(ctx context.Context, order *entity.Order) {
	var text string
	switch order.Status {
	case entity.OrderStatusInProgress:
		text = "The master has been selected. Work on the order has started."
	case entity.OrderStatusPendingReview:
		text = "The master has submitted the work for review."
	case entity.OrderStatusCompleted:
		text = "The customer accepted the work. The order is completed."
	case entity.OrderStatusCancelled:
		text = fmt.Sprintf("The order was cancelled. %s", order.CancellationReason)
	default:
		text = fmt.Sprintf("Order status changed to %s.", order.Status)
	}
	uc.announceStatus(ctx, order, strings.TrimSpace(text))
}
