package reconciler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/pkg/logger"
)

// Badge is the passive listener context: it never renders messages, it only
// tracks per-chat and aggregate unread counts for one user across all their
// chats. Push events move the counters optimistically; a coalesced directory
// pull keeps them honest.
type Badge struct {
	session Session
	store   Store
	bus     Bus

	mu     sync.Mutex
	unread map[string]int
	joined map[string]bool
	// lastSeq dedups new_message deliveries by identifier: the same message
	// can arrive through both the room and the user-directed path.
	lastSeq map[string]int64

	coalescer       *Coalescer
	refreshInterval time.Duration
	onChanged       func(total int)
}

// BadgeOption customizes a Badge.
type BadgeOption func(*Badge)

// WithRefreshInterval overrides the cadence of directory reconciliation
// pulls.
func WithRefreshInterval(interval time.Duration) BadgeOption {
	return func(b *Badge) {
		b.refreshInterval = interval
	}
}

func NewBadge(session Session, store Store, bus Bus, onChanged func(total int), opts ...BadgeOption) *Badge {
	b := &Badge{
		session:         session,
		store:           store,
		bus:             bus,
		unread:          make(map[string]int),
		joined:          make(map[string]bool),
		lastSeq:         make(map[string]int64),
		refreshInterval: time.Second,
		onChanged:       onChanged,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.coalescer = NewCoalescer(b.refreshInterval, b.refresh)
	return b
}

// Start pulls the directory baseline and joins every chat room the user
// belongs to. Reconnecting transports call Start again to re-join.
func (b *Badge) Start(ctx context.Context) error {
	entries, err := b.store.ListChats(ctx, b.session)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.unread = make(map[string]int, len(entries))
	for _, entry := range entries {
		b.unread[entry.ChatID] = entry.Unread
		if !b.joined[entry.ChatID] {
			b.joined[entry.ChatID] = true
			b.bus.Join(entry.ChatID)
		}
	}
	total := b.totalLocked()
	b.mu.Unlock()

	b.notify(total)
	return nil
}

// HandleEvent folds one push signal into the counters.
func (b *Badge) HandleEvent(event websocket.Event) {
	switch event.Type {
	case websocket.EventNewMessage:
		if event.Message != nil && event.Message.SenderID == b.session.UserID {
			return
		}
		b.mu.Lock()
		if event.Message != nil {
			if event.Message.Seq <= b.lastSeq[event.ChatID] {
				b.mu.Unlock()
				return
			}
			b.lastSeq[event.ChatID] = event.Message.Seq
		}
		b.unread[event.ChatID]++
		if !b.joined[event.ChatID] {
			// First sign of a chat created after Start.
			b.joined[event.ChatID] = true
			b.bus.Join(event.ChatID)
		}
		total := b.totalLocked()
		b.mu.Unlock()
		b.notify(total)
		b.coalescer.Trigger()

	case websocket.EventMessagesRead:
		if event.ReaderID != b.session.UserID {
			return
		}
		b.mu.Lock()
		b.unread[event.ChatID] = 0
		total := b.totalLocked()
		b.mu.Unlock()
		b.notify(total)
		b.coalescer.Trigger()
	}
}

// Listen decodes raw frames from a transport subscription and feeds them to
// HandleEvent. It returns when the channel closes or the context ends.
func (b *Badge) Listen(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			var event websocket.Event
			if err := json.Unmarshal(frame, &event); err != nil {
				logger.Warn("badge: dropping undecodable frame: %v", err)
				continue
			}
			b.HandleEvent(event)
		case <-ctx.Done():
			return
		}
	}
}

// Unread returns the counter for one chat.
func (b *Badge) Unread(chatID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread[chatID]
}

// Total returns the aggregate unread count.
func (b *Badge) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalLocked()
}

func (b *Badge) totalLocked() int {
	total := 0
	for _, count := range b.unread {
		total += count
	}
	return total
}

func (b *Badge) notify(total int) {
	if b.onChanged != nil {
		b.onChanged(total)
	}
}

// refresh reconciles the optimistic counters against the store.
func (b *Badge) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := b.store.ListChats(ctx, b.session)
	if err != nil {
		logger.Warn("badge: directory refresh failed: %v", err)
		return
	}

	b.mu.Lock()
	b.unread = make(map[string]int, len(entries))
	for _, entry := range entries {
		b.unread[entry.ChatID] = entry.Unread
		if !b.joined[entry.ChatID] {
			b.joined[entry.ChatID] = true
			b.bus.Join(entry.ChatID)
		}
	}
	total := b.totalLocked()
	b.mu.Unlock()

	b.notify(total)
}
