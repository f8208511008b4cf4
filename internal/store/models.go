package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	Identity    string    `gorm:"primaryKey"`
	Status      string    `gorm:"not null"`
	IsParalyzed bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type ConversationModel struct {
	ID            int64     `gorm:"primaryKey"`
	UserA         string    `gorm:"not null;index"`
	UserB         string    `gorm:"not null;index"`
	PairKey       string    `gorm:"uniqueIndex;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	LastMessageAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID             int64  `gorm:"primaryKey"`
	ConversationID int64  `gorm:"not null;index"`
	FromIdentity   string `gorm:"not null"`
	ToIdentity     string `gorm:"not null"`
	Body           string `gorm:"not null"`
	MessageType    string `gorm:"not null"`
	IsRead         bool   `gorm:"not null"`
	ReadAt         *time.Time
	CreatedAt      time.Time `gorm:"not null;index"`
}

type ContactModel struct {
	ID                 int64  `gorm:"primaryKey"`
	OwnerIdentity      string `gorm:"not null;uniqueIndex:idx_owner_contact"`
	ContactIdentity    string `gorm:"not null;uniqueIndex:idx_owner_contact"`
	Nickname           string
	LastMessagePreview string
	LastMessageAt      time.Time `gorm:"index"`
	UnreadCount        int       `gorm:"not null"`
}
