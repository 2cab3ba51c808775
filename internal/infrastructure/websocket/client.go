package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"furnimarket/pkg/logger"
)

// Client represents one subscriber connection. Conn is nil for in-process
// listeners (the unread-badge observer), which read from Send directly.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

// TrySend queues a payload without blocking. It reports false when the send
// buffer is full or the client has already been torn down.
func (c *Client) TrySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Publishers go through
// TrySend, which shares the mutex, so a send can never race the close.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump consumes inbound frames until the connection dies. It handles the
// thin room protocol (join_room, leave_room, mark_read, ping); everything
// else a client needs goes through the HTTP API.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: read error for conn %s: %v", c.ID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			c.sendJSON(map[string]string{"type": MessageTypePong})

		case MessageTypeJoinRoom:
			if msg.ChatID == "" {
				c.sendError("missing chat_id")
				continue
			}
			m.JoinRoom(msg.ChatID, c.ID)
			logger.Debug("ws: conn %s joined room %s", c.ID, msg.ChatID)

		case MessageTypeLeaveRoom:
			if msg.ChatID == "" {
				c.sendError("missing chat_id")
				continue
			}
			m.LeaveRoom(msg.ChatID, c.ID)
			logger.Debug("ws: conn %s left room %s", c.ID, msg.ChatID)

		case MessageTypeMarkRead:
			if msg.ChatID == "" {
				c.sendError("missing chat_id")
				continue
			}
			if m.markRead == nil {
				continue
			}
			if err := m.markRead(context.Background(), c.UserID, msg.ChatID); err != nil {
				logger.Warn("ws: mark_read failed for user %s chat %s: %v", c.UserID, msg.ChatID, err)
				c.sendError("failed to mark chat as read")
			}

		default:
			c.sendError("unknown message type")
		}
	}
}

// WritePump streams queued events to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("ws: write error for conn %s: %v", c.ID, err)
			return
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.TrySend(payload)
}

func (c *Client) sendError(message string) {
	c.sendJSON(map[string]string{
		"type":      "error",
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
