package store

import (
	"errors"
	"time"

	"biosync/pkg/domain"
)

var (
	// ErrConversationExists is returned by CreateConversation when a
	// conversation for the same unordered pair already exists. Callers
	// treat it as "the other participant just created it" and re-resolve.
	ErrConversationExists = errors.New("conversation already exists for pair")
	// ErrContactExists is returned by AddContact on a duplicate
	// (owner, contact) pair.
	ErrContactExists = errors.New("contact already exists")
)

// Store defines persistence operations for presence rows,
// conversations, messages, and contact rollups.
//
// Every method is a single atomic unit; no transaction spans calls.
// Cross-call consistency relies on the pair-key unique constraint and
// the storage-side unread increment.
type Store interface {
	// presence rows
	SaveUser(u domain.User) error
	GetUser(identity string) (domain.User, bool, error)
	SetUserStatus(identity string, status domain.PresenceStatus) error

	// conversations
	GetConversationByPair(a, b string) (domain.Conversation, bool, error)
	CreateConversation(a, b string) (domain.Conversation, error)
	TouchConversation(id int64, at time.Time) error
	GetConversation(id int64) (domain.Conversation, bool, error)
	ListConversations(identity string) ([]domain.Conversation, error)

	// messages
	AppendMessage(conversationID int64, from, to, body, msgType string) (domain.Message, error)
	MarkMessageRead(id int64, at time.Time) (domain.Message, bool, error)
	ListMessages(conversationID int64, limit, offset int) ([]domain.Message, error)

	// contact rollups
	RecordInboundMessage(owner, sender, preview string, at time.Time) error
	AddContact(owner, contact, nickname string) (domain.Contact, error)
	ListContacts(owner string) ([]domain.Contact, error)
	ResetUnread(owner, contact string) error
}

const previewLimit = 100

// PairKey returns the canonical order-independent key for two
// identities, used to enforce one conversation per pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit])
}
