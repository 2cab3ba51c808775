package reconciler

import (
	"furnimarket/internal/domain/entity"
	"furnimarket/pkg/errors"
)

// Session carries the caller's identity and credentials. It is injected into
// every store call; nothing in this package reads ambient global state.
type Session struct {
	UserID string
	Token  string
}

// Participant is the viewer's capability within one chat, resolved once when
// the chat is selected. Role dispatch happens here, not by comparing id
// strings at every access site.
type Participant struct {
	ChatID          string
	Role            string
	CounterpartID   string
	CounterpartName string
}

// IsCustomer reports whether the viewer is the ordering side of the chat.
func (p Participant) IsCustomer() bool {
	return p.Role == entity.RoleCustomer
}

// ResolveParticipant derives the session user's capability for a chat.
func ResolveParticipant(session Session, chat *entity.Chat, counterpartName string) (Participant, error) {
	participant := Participant{
		ChatID:          chat.ID,
		CounterpartName: counterpartName,
	}

	switch session.UserID {
	case chat.CustomerID:
		participant.Role = entity.RoleCustomer
		participant.CounterpartID = chat.MasterID
	case chat.MasterID:
		participant.Role = entity.RoleMaster
		participant.CounterpartID = chat.CustomerID
	default:
		return Participant{}, errors.Forbidden("session user is not a participant of this chat", nil)
	}

	return participant, nil
}
