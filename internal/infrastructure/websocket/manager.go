package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"furnimarket/pkg/logger"
)

// Manager owns all live connections and their room memberships. Rooms are
// keyed by chat id and exist only while at least one connection is joined;
// membership is never persisted and is rebuilt by clients on reconnect.
//
// Publish is best-effort, at-most-once per connection: a member whose send
// buffer is full is dropped rather than blocking the fan-out. Clients heal
// from any missed event on their next authoritative pull.
type Manager struct {
	clients map[string]*Client            // connection id -> client
	rooms   map[string]map[string]*Client // chat id -> connection id -> client
	byUser  map[string]map[string]*Client // user id -> connection id -> client

	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	// markRead lets the read pump forward mark_read frames to the chat
	// use case without an import cycle.
	markRead func(ctx context.Context, userID, chatID string) error
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		byUser:     make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// SetMarkReadHandler wires the handler invoked for inbound mark_read frames.
func (m *Manager) SetMarkReadHandler(fn func(ctx context.Context, userID, chatID string) error) {
	m.markRead = fn
}

// Start runs the manager's register/unregister loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)
				logger.Info("ws: client registered: conn=%s user=%s", client.ID, client.UserID)

			case client := <-m.Unregister:
				m.removeClient(client.ID)
				logger.Info("ws: client unregistered: conn=%s user=%s", client.ID, client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) addClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.clients[client.ID] = client
	if m.byUser[client.UserID] == nil {
		m.byUser[client.UserID] = make(map[string]*Client)
	}
	m.byUser[client.UserID][client.ID] = client
}

func (m *Manager) removeClient(connID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[connID]
	if !ok {
		return
	}
	delete(m.clients, connID)

	for chatID, members := range m.rooms {
		if _, joined := members[connID]; joined {
			delete(members, connID)
			if len(members) == 0 {
				delete(m.rooms, chatID)
			}
		}
	}

	if conns := m.byUser[client.UserID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.byUser, client.UserID)
		}
	}

	client.closeSend()
}

// JoinRoom subscribes a connection to a chat room. A connection may belong
// to any number of rooms.
func (m *Manager) JoinRoom(chatID, connID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[connID]
	if !ok {
		return
	}
	if m.rooms[chatID] == nil {
		m.rooms[chatID] = make(map[string]*Client)
	}
	m.rooms[chatID][connID] = client
}

// LeaveRoom unsubscribes a connection from a chat room.
func (m *Manager) LeaveRoom(chatID, connID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members, ok := m.rooms[chatID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, chatID)
	}
}

// RoomSize reports the number of connections currently joined to a room.
func (m *Manager) RoomSize(chatID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[chatID])
}

// PublishToChat fans an event out to every connection joined to the chat's
// room. Delivery is best-effort: slow consumers are skipped, not waited on.
func (m *Manager) PublishToChat(chatID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("ws: failed to marshal %s event for chat %s: %v", event.Type, chatID, err)
		return
	}

	m.mutex.RLock()
	members := make([]*Client, 0, len(m.rooms[chatID]))
	for _, client := range m.rooms[chatID] {
		members = append(members, client)
	}
	m.mutex.RUnlock()

	for _, client := range members {
		if !client.TrySend(payload) {
			logger.Warn("ws: dropping %s event for conn %s, send buffer full or closed", event.Type, client.ID)
		}
	}
}

// SendToUser delivers an event to every connection of a user, regardless of
// room membership. Used for chat-list and unread-badge signals.
func (m *Manager) SendToUser(userID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("ws: failed to marshal %s event for user %s: %v", event.Type, userID, err)
		return
	}

	m.mutex.RLock()
	conns := make([]*Client, 0, len(m.byUser[userID]))
	for _, client := range m.byUser[userID] {
		conns = append(conns, client)
	}
	m.mutex.RUnlock()

	for _, client := range conns {
		if !client.TrySend(payload) {
			logger.Warn("ws: dropping %s event for user %s conn %s, send buffer full or closed", event.Type, userID, client.ID)
		}
	}
}
