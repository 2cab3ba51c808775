package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/infrastructure/websocket"
)

// fakeStore is an in-memory Store with a hook to stall ListMessages, used to
// exercise in-flight pull invalidation.
type fakeStore struct {
	mu       sync.Mutex
	seq      map[string]int64
	messages map[string][]*entity.Message
	entries  []ChatEntry
	onList   func(chatID string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seq:      make(map[string]int64),
		messages: make(map[string][]*entity.Message),
	}
}

func (s *fakeStore) addMessage(chatID, senderID, content string) *entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[chatID]++
	message := &entity.Message{
		ID:       content,
		ChatID:   chatID,
		Seq:      s.seq[chatID],
		SenderID: senderID,
		Content:  content,
	}
	s.messages[chatID] = append(s.messages[chatID], message)
	return message
}

func (s *fakeStore) ListMessages(ctx context.Context, session Session, chatID string) ([]*entity.Message, error) {
	// Snapshot first, then stall: a gated pull returns the state from when
	// it started, like a slow response caught mid-flight.
	s.mu.Lock()
	out := make([]*entity.Message, len(s.messages[chatID]))
	copy(out, s.messages[chatID])
	s.mu.Unlock()

	if s.onList != nil {
		s.onList(chatID)
	}
	return out, nil
}

func (s *fakeStore) SendMessage(ctx context.Context, session Session, chatID, content string) (*entity.Message, error) {
	return s.addMessage(chatID, session.UserID, content), nil
}

func (s *fakeStore) MarkChatRead(ctx context.Context, session Session, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range s.messages[chatID] {
		if message.SenderID != session.UserID {
			message.IsRead = true
		}
	}
	return nil
}

func (s *fakeStore) ListChats(ctx context.Context, session Session) ([]ChatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// fakeBus records joins, leaves, and publishes.
type fakeBus struct {
	mu        sync.Mutex
	joined    map[string]bool
	published []websocket.Event
}

func newFakeBus() *fakeBus {
	return &fakeBus{joined: make(map[string]bool)}
}

func (b *fakeBus) Join(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joined[chatID] = true
}

func (b *fakeBus) Leave(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.joined, chatID)
}

func (b *fakeBus) Publish(chatID string, event websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func testChat(id string) *entity.Chat {
	return &entity.Chat{
		ID:         id,
		OrderID:    id,
		CustomerID: "me",
		MasterID:   "peer",
	}
}

func newTestReconciler(store Store, bus Bus) *Reconciler {
	return New(Session{UserID: "me"}, store, bus, WithPullInterval(10*time.Millisecond))
}

func TestSelectChatPullsBaselineAndJoinsRoom(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	store.addMessage("chat-1", "peer", "hello")
	store.addMessage("chat-1", "me", "hi")

	r := newTestReconciler(store, bus)
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), "Boris"))

	messages := r.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].Seq)
	assert.Equal(t, int64(2), messages[1].Seq)
	assert.True(t, bus.joined["chat-1"])

	participant := r.Participant()
	assert.Equal(t, entity.RoleCustomer, participant.Role)
	assert.Equal(t, "peer", participant.CounterpartID)
	assert.Equal(t, "Boris", participant.CounterpartName)
}

func TestDuplicateEventDeliveryYieldsOneMessage(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	message := store.addMessage("chat-1", "peer", "hello")
	event := websocket.NewMessageEvent(message)
	r.HandleEvent(event)
	r.HandleEvent(event)

	assert.Len(t, r.Messages(), 1)
}

func TestSelfAuthoredEchoBeforeSendResolvesIsDeduped(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	r := newTestReconciler(store, bus)
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	// The push echo of our own message can arrive before Send returns;
	// merging both must still leave exactly one copy.
	message, err := r.Send(context.Background(), "my message")
	require.NoError(t, err)
	r.HandleEvent(websocket.NewMessageEvent(message))

	messages := r.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, message.Seq, messages[0].Seq)
}

func TestSendPublishesCanonicalIdentifier(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	r := newTestReconciler(store, bus)
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	message, err := r.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), message.Seq)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.published, 1)
	require.NotNil(t, bus.published[0].Message)
	assert.Equal(t, message.Seq, bus.published[0].Message.Seq, "peers never see a client-guessed identifier")
}

func TestBackgroundChatEventBumpsUnreadOnly(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	other := store.addMessage("chat-2", "peer", "elsewhere")
	r.HandleEvent(websocket.NewMessageEvent(other))

	assert.Empty(t, r.Messages(), "background events never mutate the active list")
	assert.Equal(t, 1, r.Unread("chat-2"))
	assert.Equal(t, 1, r.UnreadTotal())
}

func TestMessagesReadByMeZeroesCounter(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	r.HandleEvent(websocket.NewMessageEvent(store.addMessage("chat-2", "peer", "a")))
	r.HandleEvent(websocket.NewMessageEvent(store.addMessage("chat-2", "peer", "b")))
	require.Equal(t, 2, r.Unread("chat-2"))

	// Read on another device of the same user.
	r.HandleEvent(websocket.MessagesReadEvent("chat-2", "me"))
	assert.Equal(t, 0, r.Unread("chat-2"))

	// A peer reading their side changes nothing for us.
	r.HandleEvent(websocket.NewMessageEvent(store.addMessage("chat-2", "peer", "c")))
	r.HandleEvent(websocket.MessagesReadEvent("chat-2", "peer"))
	assert.Equal(t, 1, r.Unread("chat-2"))
}

func TestOutOfOrderArrivalSortsByIdentifier(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	first := store.addMessage("chat-1", "peer", "first")
	second := store.addMessage("chat-1", "me", "second")

	// Bus provides no cross-sender ordering: deliver newest first.
	r.HandleEvent(websocket.NewMessageEvent(second))
	r.HandleEvent(websocket.NewMessageEvent(first))

	messages := r.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].Seq)
	assert.Equal(t, int64(2), messages[1].Seq)
}

func TestSignalOnlyEventTriggersReconcilePull(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	store.addMessage("chat-1", "peer", "hello")
	r.HandleEvent(websocket.Event{Type: websocket.EventNewMessage, ChatID: "chat-1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(r.Messages()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("signal-only event never produced a reconciliation pull")
}

func TestStalePullCannotOverwriteNewerChatSelection(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	store.addMessage("chat-A", "peer", "a1")
	store.addMessage("chat-B", "peer", "b1")
	store.addMessage("chat-B", "peer", "b2")

	release := make(chan struct{})
	var gateOnce sync.Once
	store.onList = func(chatID string) {
		if chatID == "chat-A" {
			gateOnce.Do(func() { <-release })
		}
	}

	r := newTestReconciler(store, bus)

	done := make(chan error, 1)
	go func() {
		done <- r.SelectChat(context.Background(), testChat("chat-A"), "")
	}()
	// Give the first selection time to enter its stalled pull.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-B"), ""))
	close(release)
	require.NoError(t, <-done)

	// chat-A's late result must not clobber chat-B's view.
	messages := r.Messages()
	require.Len(t, messages, 2)
	for _, message := range messages {
		assert.Equal(t, "chat-B", message.ChatID)
	}
}

func TestReselectingSameChatInvalidatesOlderPull(t *testing.T) {
	store := newFakeStore()
	store.addMessage("chat-A", "peer", "a1")

	var calls int
	var mu sync.Mutex
	release := make(chan struct{})
	store.onList = func(chatID string) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			<-release
		}
	}

	r := newTestReconciler(store, newFakeBus())

	done := make(chan error, 1)
	go func() {
		done <- r.SelectChat(context.Background(), testChat("chat-A"), "")
	}()
	time.Sleep(20 * time.Millisecond)

	store.addMessage("chat-A", "peer", "a2")
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-A"), ""))
	close(release)
	require.NoError(t, <-done)

	// The generation bump means the stalled first pull cannot shrink the
	// list back to one message.
	assert.Len(t, r.Messages(), 2)
}

func TestRefreshDirectoryReconcilesOptimisticCounters(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	// Optimistic bumps drift from the truth (e.g. double delivery of a
	// signal-only event).
	r.HandleEvent(websocket.Event{Type: websocket.EventNewMessage, ChatID: "chat-2"})
	r.HandleEvent(websocket.Event{Type: websocket.EventNewMessage, ChatID: "chat-2"})
	assert.Equal(t, 2, r.Unread("chat-2"))

	store.entries = []ChatEntry{{ChatID: "chat-2", OrderStatus: entity.OrderStatusInProgress, Unread: 1}}
	require.NoError(t, r.RefreshDirectory(context.Background()))

	assert.Equal(t, 1, r.Unread("chat-2"))
	assert.Equal(t, entity.OrderStatusInProgress, r.OrderStatus("chat-2"))
}

func TestOrderStatusEventUpdatesReadThrough(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, newFakeBus())
	require.NoError(t, r.SelectChat(context.Background(), testChat("chat-1"), ""))

	r.HandleEvent(websocket.OrderStatusChangedEvent("chat-1", entity.OrderStatusPendingReview))
	assert.Equal(t, entity.OrderStatusPendingReview, r.OrderStatus("chat-1"))
}
