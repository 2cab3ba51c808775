package reconciler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/infrastructure/websocket"
)

type totalRecorder struct {
	mu     sync.Mutex
	totals []int
}

func (r *totalRecorder) record(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals = append(r.totals, total)
}

func (r *totalRecorder) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.totals) == 0 {
		return -1
	}
	return r.totals[len(r.totals)-1]
}

func newTestBadge(store *fakeStore, bus *fakeBus) (*Badge, *totalRecorder) {
	recorder := &totalRecorder{}
	badge := NewBadge(Session{UserID: "me"}, store, bus, recorder.record)
	return badge, recorder
}

func TestBadgeStartPullsBaselineAndJoinsRooms(t *testing.T) {
	store := newFakeStore()
	store.entries = []ChatEntry{
		{ChatID: "chat-7", Unread: 3},
		{ChatID: "chat-9", Unread: 0},
	}
	bus := newFakeBus()
	badge, recorder := newTestBadge(store, bus)

	require.NoError(t, badge.Start(context.Background()))

	assert.Equal(t, 3, badge.Total())
	assert.Equal(t, 3, badge.Unread("chat-7"))
	assert.Equal(t, 0, badge.Unread("chat-9"))
	assert.Equal(t, 3, recorder.last())
	assert.True(t, bus.joined["chat-7"])
	assert.True(t, bus.joined["chat-9"])
}

func TestBadgeCountsPeerMessagesAndSkipsOwn(t *testing.T) {
	store := newFakeStore()
	// The store truth the reconciliation pull will confirm.
	store.entries = []ChatEntry{{ChatID: "chat-1", Unread: 1}}
	badge, recorder := newTestBadge(store, newFakeBus())
	require.NoError(t, badge.Start(context.Background()))

	badge.HandleEvent(websocket.NewMessageEvent(&entity.Message{ChatID: "chat-1", Seq: 1, SenderID: "peer"}))
	badge.HandleEvent(websocket.NewMessageEvent(&entity.Message{ChatID: "chat-1", Seq: 2, SenderID: "me"}))

	assert.Equal(t, 1, badge.Total())
	assert.Equal(t, 1, recorder.last())
}

func TestBadgeDedupsDoubleDeliveryByIdentifier(t *testing.T) {
	store := newFakeStore()
	store.entries = []ChatEntry{{ChatID: "chat-1", Unread: 1}}
	badge, _ := newTestBadge(store, newFakeBus())
	require.NoError(t, badge.Start(context.Background()))

	// The same message arrives twice: once via the room, once via the
	// user-directed path.
	message := &entity.Message{ChatID: "chat-1", Seq: 5, SenderID: "peer"}
	badge.HandleEvent(websocket.NewMessageEvent(message))
	badge.HandleEvent(websocket.NewMessageEvent(message))

	assert.Equal(t, 1, badge.Unread("chat-1"))
}

func TestBadgeConvergesAfterMessagesRead(t *testing.T) {
	store := newFakeStore()
	store.entries = []ChatEntry{{ChatID: "chat-1", Unread: 1}}
	badge, recorder := newTestBadge(store, newFakeBus())
	require.NoError(t, badge.Start(context.Background()))

	badge.HandleEvent(websocket.NewMessageEvent(&entity.Message{ChatID: "chat-1", Seq: 1, SenderID: "peer"}))
	badge.HandleEvent(websocket.NewMessageEvent(&entity.Message{ChatID: "chat-2", Seq: 1, SenderID: "peer"}))
	require.Equal(t, 2, badge.Total())

	badge.HandleEvent(websocket.MessagesReadEvent("chat-1", "me"))
	assert.Equal(t, 1, badge.Total())
	assert.Equal(t, 0, badge.Unread("chat-1"))
	assert.Equal(t, 1, recorder.last())

	// A peer's read receipt never moves our badge.
	badge.HandleEvent(websocket.MessagesReadEvent("chat-2", "peer"))
	assert.Equal(t, 1, badge.Total())
}

func TestBadgeJoinsRoomsOfChatsCreatedAfterStart(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	badge, _ := newTestBadge(store, bus)
	require.NoError(t, badge.Start(context.Background()))

	badge.HandleEvent(websocket.NewMessageEvent(&entity.Message{ChatID: "chat-new", Seq: 1, SenderID: "peer"}))

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.True(t, bus.joined["chat-new"])
}
