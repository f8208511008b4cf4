package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"biosync/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. TranslateError is
// enabled so unique-constraint violations surface as
// gorm.ErrDuplicatedKey and can be mapped to the sentinel errors.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ConversationModel{}, &MessageModel{}, &ContactModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser creates or updates a presence row.
func (s *GormStore) SaveUser(u domain.User) error {
	model := UserModel{
		Identity:    u.Identity,
		Status:      string(u.Status),
		IsParalyzed: u.IsParalyzed,
		CreatedAt:   u.CreatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "is_paralyzed"}),
	}).Create(&model).Error
}

// GetUser returns the presence row for an identity.
func (s *GormStore) GetUser(identity string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "identity = ?", identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetUserStatus flips the persisted online/offline flag. Unknown
// identities are a no-op.
func (s *GormStore) SetUserStatus(identity string, status domain.PresenceStatus) error {
	return s.db.Model(&UserModel{}).
		Where("identity = ?", identity).
		Update("status", string(status)).Error
}

// GetConversationByPair looks up the conversation for an unordered pair.
func (s *GormStore) GetConversationByPair(a, b string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "pair_key = ?", PairKey(a, b)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// CreateConversation inserts a new conversation row. The pair_key
// unique index rejects a concurrent insert for the same pair; that case
// is reported as ErrConversationExists.
func (s *GormStore) CreateConversation(a, b string) (domain.Conversation, error) {
	now := time.Now().UTC()
	model := ConversationModel{
		UserA:         a,
		UserB:         b,
		PairKey:       PairKey(a, b),
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Conversation{}, ErrConversationExists
		}
		return domain.Conversation{}, err
	}
	return conversationFromModel(model), nil
}

// TouchConversation bumps last_message_at.
func (s *GormStore) TouchConversation(id int64, at time.Time) error {
	return s.db.Model(&ConversationModel{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

// GetConversation returns one conversation by id.
func (s *GormStore) GetConversation(id int64) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// ListConversations returns all conversations the identity takes part
// in, most recently active first.
func (s *GormStore) ListConversations(identity string) ([]domain.Conversation, error) {
	var models []ConversationModel
	if err := s.db.
		Where("user_a = ? OR user_b = ?", identity, identity).
		Order("last_message_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Conversation, 0, len(models))
	for _, m := range models {
		res = append(res, conversationFromModel(m))
	}
	return res, nil
}

// AppendMessage persists a message with a server-side creation time.
func (s *GormStore) AppendMessage(conversationID int64, from, to, body, msgType string) (domain.Message, error) {
	model := MessageModel{
		ConversationID: conversationID,
		FromIdentity:   from,
		ToIdentity:     to,
		Body:           body,
		MessageType:    msgType,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Message{}, err
	}
	return messageFromModel(model), nil
}

// MarkMessageRead sets the read flag and timestamp. Calling it again on
// an already-read message overwrites the timestamp, which is harmless.
func (s *GormStore) MarkMessageRead(id int64, at time.Time) (domain.Message, bool, error) {
	var model MessageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, err
	}
	if err := s.db.Model(&model).Updates(map[string]any{
		"is_read": true,
		"read_at": at,
	}).Error; err != nil {
		return domain.Message{}, false, err
	}
	model.IsRead = true
	model.ReadAt = &at
	return messageFromModel(model), true, nil
}

// ListMessages returns one page ordered newest-first at the storage
// layer; callers reverse before display.
func (s *GormStore) ListMessages(conversationID int64, limit, offset int) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// RecordInboundMessage upserts the (owner, sender) rollup. The unread
// counter is incremented inside the upsert statement so concurrent
// sends cannot lose updates.
func (s *GormStore) RecordInboundMessage(owner, sender, preview string, at time.Time) error {
	model := ContactModel{
		OwnerIdentity:      owner,
		ContactIdentity:    sender,
		LastMessagePreview: truncatePreview(preview),
		LastMessageAt:      at,
		UnreadCount:        1,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_identity"}, {Name: "contact_identity"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_message_preview": truncatePreview(preview),
			"last_message_at":      at,
			"unread_count":         gorm.Expr("contact_models.unread_count + 1"),
		}),
	}).Create(&model).Error
}

// AddContact inserts an explicit contact row with a zero counter.
func (s *GormStore) AddContact(owner, contact, nickname string) (domain.Contact, error) {
	model := ContactModel{
		OwnerIdentity:   owner,
		ContactIdentity: contact,
		Nickname:        nickname,
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Contact{}, ErrContactExists
		}
		return domain.Contact{}, err
	}
	return contactFromModel(model), nil
}

// ListContacts returns the owner's rollups, most recent first.
func (s *GormStore) ListContacts(owner string) ([]domain.Contact, error) {
	var models []ContactModel
	if err := s.db.
		Where("owner_identity = ?", owner).
		Order("last_message_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Contact, 0, len(models))
	for _, m := range models {
		res = append(res, contactFromModel(m))
	}
	return res, nil
}

// ResetUnread zeroes the counter after the owner read the thread.
func (s *GormStore) ResetUnread(owner, contact string) error {
	return s.db.Model(&ContactModel{}).
		Where("owner_identity = ? AND contact_identity = ?", owner, contact).
		Update("unread_count", 0).Error
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		Identity:    m.Identity,
		Status:      domain.PresenceStatus(m.Status),
		IsParalyzed: m.IsParalyzed,
		CreatedAt:   m.CreatedAt,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:            m.ID,
		UserA:         m.UserA,
		UserB:         m.UserB,
		CreatedAt:     m.CreatedAt,
		LastMessageAt: m.LastMessageAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		From:           m.FromIdentity,
		To:             m.ToIdentity,
		Body:           m.Body,
		Type:           m.MessageType,
		Read:           m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		ID:                 m.ID,
		Owner:              m.OwnerIdentity,
		ContactIdentity:    m.ContactIdentity,
		Nickname:           m.Nickname,
		LastMessagePreview: m.LastMessagePreview,
		LastMessageAt:      m.LastMessageAt,
		UnreadCount:        m.UnreadCount,
	}
}
