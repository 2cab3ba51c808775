package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/pkg/errors"
)

// In-memory fakes shared by the use case tests. They mirror the Firestore
// repositories' semantics: sequence assignment in CreateMessage, conditional
// transitions in UpdateStatus, single-winner settlement in CompleteAndSettle.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

type fakeChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
	}
}

func (f *fakeChatRepo) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.chats[chat.OrderID]; ok {
		copied := *existing
		return &copied, nil
	}
	now := time.Now()
	chat.ID = chat.OrderID
	chat.CreatedAt = now
	chat.UpdatedAt = now
	copied := *chat
	f.chats[chat.ID] = &copied
	result := copied
	return &result, nil
}

func (f *fakeChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	copied := *chat
	return &copied, nil
}

func (f *fakeChatRepo) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Chat, 0)
	for _, chat := range f.chats {
		if chat.CustomerID == userID || chat.MasterID == userID {
			copied := *chat
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (f *fakeChatRepo) SetRulesAccepted(ctx context.Context, chatID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	switch userID {
	case chat.CustomerID:
		chat.CustomerAcceptedRules = true
	case chat.MasterID:
		chat.MasterAcceptedRules = true
	default:
		return errors.Forbidden("user is not a participant of this chat", nil)
	}
	return nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[message.ChatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	chat.MessageSeq++
	message.Seq = chat.MessageSeq
	message.CreatedAt = time.Now()
	chat.LastMessage = message.Content
	chat.LastMessageAt = message.CreatedAt
	copied := *message
	f.messages[message.ChatID] = append(f.messages[message.ChatID], &copied)
	result := copied
	return &result, nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Message, 0, len(f.messages[chatID]))
	for _, message := range f.messages[chatID] {
		copied := *message
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, chatID, viewerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, message := range f.messages[chatID] {
		if message.SenderID != viewerID {
			message.IsRead = true
		}
	}
	return nil
}

func (f *fakeChatRepo) CountUnread(ctx context.Context, chatID, viewerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, message := range f.messages[chatID] {
		if !message.IsRead && message.SenderID != viewerID {
			count++
		}
	}
	return count, nil
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*entity.Order
	logs    []*entity.OrderLog
	wallets map[string]*entity.Wallet
	txns    []*entity.WalletTransaction
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*entity.Order),
		wallets: make(map[string]*entity.Wallet),
	}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, errors.NotFound("Order", nil)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) ListByUserID(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Order, 0)
	for _, order := range f.orders {
		if (role == entity.RoleMaster && order.MasterID == userID) ||
			(role != entity.RoleMaster && order.CustomerID == userID) {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID, from, to string, mutate func(*entity.Order)) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.NotFound("Order", nil)
	}
	if order.Status != from {
		return nil, errors.Conflict("order status changed concurrently")
	}
	if mutate != nil {
		mutate(order)
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) CompleteAndSettle(ctx context.Context, orderID string, rating int, review string, netAmount float64) (*entity.Order, *entity.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, nil, errors.NotFound("Order", nil)
	}
	if order.Status != entity.OrderStatusPendingReview {
		return nil, nil, errors.Conflict("order is not awaiting review")
	}

	wallet, ok := f.wallets[order.MasterID]
	if !ok {
		wallet = &entity.Wallet{ID: uuid.New().String(), UserID: order.MasterID}
		f.wallets[order.MasterID] = wallet
	}

	now := time.Now()
	order.Status = entity.OrderStatusCompleted
	order.Rating = rating
	order.Review = review
	order.CompletedAt = &now

	txn := &entity.WalletTransaction{
		ID:              uuid.New().String(),
		WalletID:        wallet.ID,
		UserID:          order.MasterID,
		Type:            entity.WalletTxnTypeSettlement,
		Amount:          netAmount,
		PreviousBalance: wallet.Balance,
		NewBalance:      wallet.Balance + netAmount,
		Reference:       order.ID,
		CreatedAt:       now,
	}
	wallet.Balance += netAmount
	f.txns = append(f.txns, txn)

	copiedOrder := *order
	copiedTxn := *txn
	return &copiedOrder, &copiedTxn, nil
}

func (f *fakeOrderRepo) CreateLog(ctx context.Context, log *entity.OrderLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *log
	f.logs = append(f.logs, &copied)
	return nil
}

func (f *fakeOrderRepo) walletBalance(userID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if wallet, ok := f.wallets[userID]; ok {
		return wallet.Balance
	}
	return 0
}

func (f *fakeOrderRepo) settlementCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txns)
}

type fakeBidRepo struct {
	mu   sync.Mutex
	bids map[string]*entity.Bid
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{bids: make(map[string]*entity.Bid)}
}

func (f *fakeBidRepo) Create(ctx context.Context, bid *entity.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bid
	f.bids[bid.ID] = &copied
	return nil
}

func (f *fakeBidRepo) GetByID(ctx context.Context, id string) (*entity.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid, ok := f.bids[id]
	if !ok {
		return nil, errors.NotFound("Bid", nil)
	}
	copied := *bid
	return &copied, nil
}

func (f *fakeBidRepo) ListByOrderID(ctx context.Context, orderID string) ([]*entity.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Bid, 0)
	for _, bid := range f.bids {
		if bid.OrderID == orderID {
			copied := *bid
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBidRepo) Update(ctx context.Context, bid *entity.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bid
	f.bids[bid.ID] = &copied
	return nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews []*entity.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{}
}

func (f *fakeReviewRepo) Create(ctx context.Context, review *entity.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *review
	f.reviews = append(f.reviews, &copied)
	return nil
}

func (f *fakeReviewRepo) ListByMasterID(ctx context.Context, masterID string, limit, offset int) ([]*entity.Review, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Review, 0)
	for _, review := range f.reviews {
		if review.MasterID == masterID {
			copied := *review
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

// recordingBus captures every publish so tests can assert on event payloads.
type recordingBus struct {
	mu         sync.Mutex
	chatEvents map[string][]websocket.Event
	userEvents map[string][]websocket.Event
}

func newRecordingBus() *recordingBus {
	return &recordingBus{
		chatEvents: make(map[string][]websocket.Event),
		userEvents: make(map[string][]websocket.Event),
	}
}

func (b *recordingBus) PublishToChat(chatID string, event websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatEvents[chatID] = append(b.chatEvents[chatID], event)
}

func (b *recordingBus) SendToUser(userID string, event websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userEvents[userID] = append(b.userEvents[userID], event)
}

func (b *recordingBus) chatEventTypes(chatID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.chatEvents[chatID]))
	for _, event := range b.chatEvents[chatID] {
		types = append(types, event.Type)
	}
	return types
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(userID, action string) (bool, time.Duration) {
	return true, 0
}

type denyLimiter struct{}

func (denyLimiter) Allow(userID, action string) (bool, time.Duration) {
	return false, 5 * time.Second
}
