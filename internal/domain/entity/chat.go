package entity

import "time"

// Chat is the single conversation bound to one order. Its document id equals
// the order id, which makes get-or-create idempotent by construction. The
// order/customer/master triple never changes once the chat exists.
type Chat struct {
	ID         string `json:"id" firestore:"id"`
	OrderID    string `json:"order_id" firestore:"orderId"`
	CustomerID string `json:"customer_id" firestore:"customerId"`
	MasterID   string `json:"master_id" firestore:"masterId"`

	CustomerAcceptedRules bool `json:"customer_accepted_rules" firestore:"customerAcceptedRules"`
	MasterAcceptedRules   bool `json:"master_accepted_rules" firestore:"masterAcceptedRules"`

	// MessageSeq is the per-chat message counter, incremented inside the same
	// transaction that persists each message.
	MessageSeq int64 `json:"-" firestore:"messageSeq"`

	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ParticipantIDs lists the two chat members.
func (c *Chat) ParticipantIDs() []string {
	return []string{c.CustomerID, c.MasterID}
}

// HasParticipant reports whether the user belongs to this chat.
func (c *Chat) HasParticipant(userID string) bool {
	return userID == c.CustomerID || userID == c.MasterID
}

// CounterpartID returns the other participant of the chat.
func (c *Chat) CounterpartID(userID string) string {
	if userID == c.CustomerID {
		return c.MasterID
	}
	return c.CustomerID
}

// AcceptedRules reports whether the given participant accepted the chat rules.
func (c *Chat) AcceptedRules(userID string) bool {
	if userID == c.CustomerID {
		return c.CustomerAcceptedRules
	}
	if userID == c.MasterID {
		return c.MasterAcceptedRules
	}
	return false
}
