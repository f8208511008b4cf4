package store

import (
	"sort"
	"sync"
	"time"

	"biosync/pkg/domain"
)

// MemoryStore is the in-process twin of GormStore, used by tests and
// local development. It honors the same contracts: pair uniqueness,
// atomic unread increments, newest-first message pages.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]domain.User
	convs      map[int64]domain.Conversation
	pairs      map[string]int64 // pair key -> conversation id
	messages   map[int64]domain.Message
	contacts   map[string]domain.Contact // owner\x00contact -> rollup
	nextConvID int64
	nextMsgID  int64
	nextCtcID  int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		convs:    make(map[int64]domain.Conversation),
		pairs:    make(map[string]int64),
		messages: make(map[int64]domain.Message),
		contacts: make(map[string]domain.Contact),
	}
}

func contactKey(owner, contact string) string {
	return owner + "\x00" + contact
}

// SaveUser creates or updates a presence row.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.Identity]; ok {
		existing.Status = u.Status
		existing.IsParalyzed = u.IsParalyzed
		m.users[u.Identity] = existing
		return nil
	}
	m.users[u.Identity] = u
	return nil
}

// GetUser returns the presence row for an identity.
func (m *MemoryStore) GetUser(identity string) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[identity]
	return u, ok, nil
}

// SetUserStatus flips the online/offline flag; unknown identity is a no-op.
func (m *MemoryStore) SetUserStatus(identity string, status domain.PresenceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[identity]; ok {
		u.Status = status
		m.users[identity] = u
	}
	return nil
}

// GetConversationByPair looks up the conversation for an unordered pair.
func (m *MemoryStore) GetConversationByPair(a, b string) (domain.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.pairs[PairKey(a, b)]
	if !ok {
		return domain.Conversation{}, false, nil
	}
	return m.convs[id], true, nil
}

// CreateConversation inserts a new row, enforcing pair uniqueness.
func (m *MemoryStore) CreateConversation(a, b string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := PairKey(a, b)
	if _, ok := m.pairs[key]; ok {
		return domain.Conversation{}, ErrConversationExists
	}
	m.nextConvID++
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:            m.nextConvID,
		UserA:         a,
		UserB:         b,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	m.convs[conv.ID] = conv
	m.pairs[key] = conv.ID
	return conv, nil
}

// TouchConversation bumps last_message_at.
func (m *MemoryStore) TouchConversation(id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.convs[id]; ok {
		conv.LastMessageAt = at
		m.convs[id] = conv
	}
	return nil
}

// GetConversation returns one conversation by id.
func (m *MemoryStore) GetConversation(id int64) (domain.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	return conv, ok, nil
}

// ListConversations returns the identity's conversations, most recently
// active first.
func (m *MemoryStore) ListConversations(identity string) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Conversation, 0)
	for _, conv := range m.convs {
		if conv.Has(identity) {
			res = append(res, conv)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].LastMessageAt.After(res[j].LastMessageAt)
	})
	return res, nil
}

// AppendMessage persists a message with a server-side creation time.
func (m *MemoryStore) AppendMessage(conversationID int64, from, to, body, msgType string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	msg := domain.Message{
		ID:             m.nextMsgID,
		ConversationID: conversationID,
		From:           from,
		To:             to,
		Body:           body,
		Type:           msgType,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[msg.ID] = msg
	return msg, nil
}

// MarkMessageRead sets the read flag and timestamp, idempotently.
func (m *MemoryStore) MarkMessageRead(id int64, at time.Time) (domain.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return domain.Message{}, false, nil
	}
	msg.Read = true
	msg.ReadAt = &at
	m.messages[id] = msg
	return msg, true, nil
}

// ListMessages returns one newest-first page.
func (m *MemoryStore) ListMessages(conversationID int64, limit, offset int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.Message, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			all = append(all, msg)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []domain.Message{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.Message(nil), all[offset:end]...), nil
}

// RecordInboundMessage upserts the (owner, sender) rollup and
// increments the unread counter by one.
func (m *MemoryStore) RecordInboundMessage(owner, sender, preview string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := contactKey(owner, sender)
	c, ok := m.contacts[key]
	if !ok {
		m.nextCtcID++
		c = domain.Contact{
			ID:              m.nextCtcID,
			Owner:           owner,
			ContactIdentity: sender,
		}
	}
	c.LastMessagePreview = truncatePreview(preview)
	c.LastMessageAt = at
	c.UnreadCount++
	m.contacts[key] = c
	return nil
}

// AddContact inserts an explicit contact row with a zero counter.
func (m *MemoryStore) AddContact(owner, contact, nickname string) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := contactKey(owner, contact)
	if _, ok := m.contacts[key]; ok {
		return domain.Contact{}, ErrContactExists
	}
	m.nextCtcID++
	c := domain.Contact{
		ID:              m.nextCtcID,
		Owner:           owner,
		ContactIdentity: contact,
		Nickname:        nickname,
	}
	m.contacts[key] = c
	return c, nil
}

// ListContacts returns the owner's rollups, most recent first.
func (m *MemoryStore) ListContacts(owner string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Contact, 0)
	for _, c := range m.contacts {
		if c.Owner == owner {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].LastMessageAt.After(res[j].LastMessageAt)
	})
	return res, nil
}

// ResetUnread zeroes the counter for one rollup.
func (m *MemoryStore) ResetUnread(owner, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := contactKey(owner, contact)
	if c, ok := m.contacts[key]; ok {
		c.UnreadCount = 0
		m.contacts[key] = c
	}
	return nil
}
