package reconciler

import (
	"context"
	"sync"

	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/pkg/logger"
)

// Hub runs one Badge observer per user with a live websocket session and
// pushes unread_changed events back to that user whenever the aggregate
// count moves. The first websocket connection of a user spins its badge up;
// it stays alive until the hub shuts down.
type Hub struct {
	store     Store
	manager   *websocket.Manager
	badgeOpts []BadgeOption

	mu     sync.Mutex
	badges map[string]*Badge
	closed []func()
}

func NewHub(store Store, manager *websocket.Manager, opts ...BadgeOption) *Hub {
	return &Hub{
		store:     store,
		manager:   manager,
		badgeOpts: opts,
		badges:    make(map[string]*Badge),
	}
}

// EnsureUser starts a badge observer for the user if one is not already
// running. Safe to call on every connection.
func (h *Hub) EnsureUser(ctx context.Context, userID string) {
	h.mu.Lock()
	if _, exists := h.badges[userID]; exists {
		h.mu.Unlock()
		return
	}

	bus, frames := NewManagerBus(h.manager, userID)
	badge := NewBadge(Session{UserID: userID}, h.store, bus, func(total int) {
		h.manager.SendToUser(userID, websocket.UnreadChangedEvent("", total))
	}, h.badgeOpts...)
	h.badges[userID] = badge

	listenCtx, cancel := context.WithCancel(context.Background())
	h.closed = append(h.closed, func() {
		cancel()
		bus.Close()
	})
	h.mu.Unlock()

	if err := badge.Start(ctx); err != nil {
		logger.Warn("badge hub: baseline pull for user %s failed: %v", userID, err)
	}
	go badge.Listen(listenCtx, frames)
}

// Unread reports the badge counter the hub currently holds for a user.
func (h *Hub) Unread(userID string) int {
	h.mu.Lock()
	badge := h.badges[userID]
	h.mu.Unlock()
	if badge == nil {
		return 0
	}
	return badge.Total()
}

// Shutdown stops every badge listener.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, stop := range h.closed {
		stop()
	}
	h.closed = nil
	h.badges = make(map[string]*Badge)
}
