package reconciler

import (
	"context"
	"sort"
	"sync"
	"time"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/infrastructure/websocket"
	"furnimarket/pkg/logger"
)

// Store is the authoritative persistence surface. Implemented in-process by
// the chat use case and over HTTP by real client apps; tests use fakes.
type Store interface {
	ListMessages(ctx context.Context, session Session, chatID string) ([]*entity.Message, error)
	SendMessage(ctx context.Context, session Session, chatID, content string) (*entity.Message, error)
	MarkChatRead(ctx context.Context, session Session, chatID string) error
	ListChats(ctx context.Context, session Session) ([]ChatEntry, error)
}

// Bus is the advisory push surface. Join/Leave scope which rooms deliver
// events to this context; Publish is fire-and-forget.
type Bus interface {
	Join(chatID string)
	Leave(chatID string)
	Publish(chatID string, event websocket.Event)
}

// ChatEntry is one row of the chat directory as the reconciler sees it.
type ChatEntry struct {
	ChatID          string
	OrderID         string
	OrderStatus     string
	CounterpartID   string
	CounterpartName string
	LastMessage     string
	Unread          int
}

// Reconciler maintains an ordered, duplicate-free message view for one
// active chat plus per-chat unread counters, merging authoritative pulls
// with best-effort push events. One instance per client context.
//
// The store is the only authority: every optimistic mutation here is
// reconciled away by the next pull.
type Reconciler struct {
	session Session
	store   Store
	bus     Bus

	mu          sync.Mutex
	activeChat  string
	participant Participant
	messages    []*entity.Message
	seen        map[int64]bool
	unread      map[string]int
	orderStatus map[string]string
	// generations invalidates in-flight pulls: a pull started for
	// (chatID, gen) discards its result unless the chat is still active
	// and its generation unchanged.
	generations map[string]uint64

	coalescer *Coalescer
	onChange  func()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithOnChange registers a callback fired after every state mutation,
// the view-invalidation hook.
func WithOnChange(fn func()) Option {
	return func(r *Reconciler) {
		r.onChange = fn
	}
}

// WithPullInterval overrides the minimum spacing between event-triggered
// reconciliation pulls.
func WithPullInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		r.coalescer = NewCoalescer(interval, r.reconcileActive)
	}
}

func New(session Session, store Store, bus Bus, opts ...Option) *Reconciler {
	r := &Reconciler{
		session:     session,
		store:       store,
		bus:         bus,
		seen:        make(map[int64]bool),
		unread:      make(map[string]int),
		orderStatus: make(map[string]string),
		generations: make(map[string]uint64),
		onChange:    func() {},
	}
	r.coalescer = NewCoalescer(500*time.Millisecond, r.reconcileActive)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectChat makes chatID the active conversation: baseline pull, room join,
// and participant resolution. Any pull still in flight for the previously
// active chat is invalidated by the generation bump.
func (r *Reconciler) SelectChat(ctx context.Context, chat *entity.Chat, counterpartName string) error {
	participant, err := ResolveParticipant(r.session, chat, counterpartName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.activeChat != "" && r.activeChat != chat.ID {
		r.bus.Leave(r.activeChat)
		r.generations[r.activeChat]++
	}
	r.activeChat = chat.ID
	r.participant = participant
	r.generations[chat.ID]++
	gen := r.generations[chat.ID]
	r.messages = nil
	r.seen = make(map[int64]bool)
	r.mu.Unlock()

	r.bus.Join(chat.ID)

	messages, err := r.store.ListMessages(ctx, r.session, chat.ID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeChat != chat.ID || r.generations[chat.ID] != gen {
		// A newer selection superseded this pull; its result must not
		// overwrite the current chat's state.
		return nil
	}
	r.replaceMessagesLocked(messages)
	r.unread[chat.ID] = 0
	r.notifyLocked()
	return nil
}

// HandleEvent merges one push signal. Events are advisory: nothing here
// trusts arrival order, and anything suspicious falls back to a pull.
func (r *Reconciler) HandleEvent(event websocket.Event) {
	switch event.Type {
	case websocket.EventNewMessage:
		r.handleNewMessage(event)
	case websocket.EventMessagesRead:
		r.handleMessagesRead(event)
	case websocket.EventOrderStatusChanged:
		r.mu.Lock()
		r.orderStatus[event.ChatID] = event.OrderStatus
		r.notifyLocked()
		r.mu.Unlock()
	}
}

func (r *Reconciler) handleNewMessage(event websocket.Event) {
	r.mu.Lock()

	if event.ChatID != r.activeChat {
		// Background chat: no message-state mutation, just an optimistic
		// unread bump reconciled on the next directory pull.
		if event.Message == nil || event.Message.SenderID != r.session.UserID {
			r.unread[event.ChatID]++
			r.notifyLocked()
		}
		r.mu.Unlock()
		return
	}

	if event.Message == nil {
		// Signal-only event: the payload has to come from the store.
		r.mu.Unlock()
		r.coalescer.Trigger()
		return
	}

	if r.seen[event.Message.Seq] {
		// Duplicate delivery or self-authored echo.
		r.mu.Unlock()
		return
	}
	r.insertLocked(event.Message)
	r.notifyLocked()
	r.mu.Unlock()
}

func (r *Reconciler) handleMessagesRead(event websocket.Event) {
	r.mu.Lock()
	if event.ReaderID == r.session.UserID {
		// This user read the chat on some device; zero optimistically,
		// reconciled on the next pull.
		r.unread[event.ChatID] = 0
		r.notifyLocked()
	}
	r.mu.Unlock()
}

// Send persists the message synchronously, merges the canonical result, and
// only then broadcasts, so peers never see a message without its
// store-assigned identifier. A failed persist mutates nothing.
func (r *Reconciler) Send(ctx context.Context, content string) (*entity.Message, error) {
	r.mu.Lock()
	chatID := r.activeChat
	r.mu.Unlock()

	message, err := r.store.SendMessage(ctx, r.session, chatID, content)
	if err != nil {
		return nil, err
	}

	// Canonical tail pull: the authoritative list also covers any peer
	// messages that landed while the send was in flight.
	messages, err := r.store.ListMessages(ctx, r.session, chatID)

	r.mu.Lock()
	if r.activeChat == chatID {
		if err == nil {
			r.replaceMessagesLocked(messages)
		} else if !r.seen[message.Seq] {
			logger.Warn("reconciler: tail pull after send failed, merging own message only: %v", err)
			r.insertLocked(message)
		}
		r.notifyLocked()
	}
	r.mu.Unlock()

	r.bus.Publish(chatID, websocket.NewMessageEvent(message))
	return message, nil
}

// MarkRead marks the active chat read, publishes the signal, and zeroes the
// local counter optimistically.
func (r *Reconciler) MarkRead(ctx context.Context) error {
	r.mu.Lock()
	chatID := r.activeChat
	r.mu.Unlock()

	if err := r.store.MarkChatRead(ctx, r.session, chatID); err != nil {
		return err
	}

	r.bus.Publish(chatID, websocket.MessagesReadEvent(chatID, r.session.UserID))

	r.mu.Lock()
	r.unread[chatID] = 0
	r.notifyLocked()
	r.mu.Unlock()
	return nil
}

// RefreshDirectory reconciles unread counters and order statuses against the
// authoritative directory.
func (r *Reconciler) RefreshDirectory(ctx context.Context) error {
	entries, err := r.store.ListChats(ctx, r.session)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.unread = make(map[string]int, len(entries))
	for _, entry := range entries {
		r.unread[entry.ChatID] = entry.Unread
		r.orderStatus[entry.ChatID] = entry.OrderStatus
	}
	r.notifyLocked()
	return nil
}

// Messages returns a snapshot of the active chat's ordered message list.
func (r *Reconciler) Messages() []*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Unread returns the local unread counter for a chat.
func (r *Reconciler) Unread(chatID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread[chatID]
}

// UnreadTotal sums unread counters across all known chats.
func (r *Reconciler) UnreadTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, count := range r.unread {
		total += count
	}
	return total
}

// OrderStatus returns the last known lifecycle status for a chat's order.
func (r *Reconciler) OrderStatus(chatID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orderStatus[chatID]
}

// Participant returns the capability resolved for the active chat.
func (r *Reconciler) Participant() Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participant
}

// reconcileActive is the coalesced pull behind signal-only events.
func (r *Reconciler) reconcileActive() {
	r.mu.Lock()
	chatID := r.activeChat
	gen := r.generations[chatID]
	r.mu.Unlock()
	if chatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, err := r.store.ListMessages(ctx, r.session, chatID)
	if err != nil {
		logger.Warn("reconciler: reconciliation pull for chat %s failed: %v", chatID, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeChat != chatID || r.generations[chatID] != gen {
		return
	}
	r.replaceMessagesLocked(messages)
	r.notifyLocked()
}

// insertLocked adds one message preserving Seq order. The common case is a
// tail append; out-of-order arrivals from concurrent senders are placed by
// identifier, never by arrival time.
func (r *Reconciler) insertLocked(message *entity.Message) {
	r.seen[message.Seq] = true
	n := len(r.messages)
	if n == 0 || r.messages[n-1].Seq < message.Seq {
		r.messages = append(r.messages, message)
		return
	}
	at := sort.Search(n, func(i int) bool { return r.messages[i].Seq >= message.Seq })
	r.messages = append(r.messages, nil)
	copy(r.messages[at+1:], r.messages[at:])
	r.messages[at] = message
}

func (r *Reconciler) replaceMessagesLocked(messages []*entity.Message) {
	r.messages = messages
	r.seen = make(map[int64]bool, len(messages))
	for _, message := range messages {
		r.seen[message.Seq] = true
	}
}

func (r *Reconciler) notifyLocked() {
	if r.onChange != nil {
		go r.onChange()
	}
}
