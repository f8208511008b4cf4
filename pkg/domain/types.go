package domain

import "time"

// PresenceStatus is the persisted reachability state of an identity.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// MessageTypeText is the only message type currently produced.
const MessageTypeText = "text"

// User is the persisted presence row for one identity. The identity
// string is opaque and owned by the external identity provider; this
// row only carries the attributes the messaging layer needs.
type User struct {
	Identity    string         `json:"identity"`
	Status      PresenceStatus `json:"status"`
	IsParalyzed bool           `json:"isParalyzed"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Conversation is the durable thread for one unordered pair of
// identities. Slot order (UserA vs UserB) carries no meaning; which
// participant is "the other party" is computed relative to a viewer.
type Conversation struct {
	ID            int64     `json:"id"`
	UserA         string    `json:"userA"`
	UserB         string    `json:"userB"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// Has reports whether identity is a participant.
func (c Conversation) Has(identity string) bool {
	return c.UserA == identity || c.UserB == identity
}

// Other returns the participant that is not identity.
func (c Conversation) Other(identity string) string {
	if c.UserA == identity {
		return c.UserB
	}
	return c.UserA
}

// Message is one persisted message. Immutable after creation except
// for the read flag/timestamp, which only ever moves false -> true.
type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversationId"`
	From           string     `json:"fromIdentity"`
	To             string     `json:"toIdentity"`
	Body           string     `json:"content"`
	Type           string     `json:"messageType"`
	Read           bool       `json:"isRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Contact is the denormalized per-(owner, contact) rollup row backing
// the contact list view: last message preview, timestamp, and unread
// counter.
type Contact struct {
	ID                 int64     `json:"id"`
	Owner              string    `json:"-"`
	ContactIdentity    string    `json:"contactIdentity"`
	Nickname           string    `json:"nickname,omitempty"`
	LastMessagePreview string    `json:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time `json:"lastMessageAt"`
	UnreadCount        int       `json:"unreadCount"`
}
