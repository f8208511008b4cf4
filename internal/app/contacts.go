package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"biosync/internal/store"
	"biosync/pkg/domain"
)

// ContactView is one contact-list entry: the rollup row joined with the
// contact's presence and identity-provider profile.
type ContactView struct {
	ID                 int64                 `json:"id"`
	ContactIdentity    string                `json:"contactIdentity"`
	ContactName        string                `json:"contactName,omitempty"`
	Nickname           string                `json:"nickname,omitempty"`
	ProfileImage       string                `json:"profileImage,omitempty"`
	LastMessagePreview string                `json:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time             `json:"lastMessageAt"`
	UnreadCount        int                   `json:"unreadCount"`
	Status             domain.PresenceStatus `json:"status"`
	IsParalyzed        bool                  `json:"isParalyzed"`
}

// ListContacts returns the owner's contact list. Profile lookups are
// best-effort: a provider failure leaves name and image empty rather
// than failing the listing.
func (a *App) ListContacts(ctx context.Context, owner string) ([]ContactView, error) {
	rollups, err := a.store.ListContacts(owner)
	if err != nil {
		return nil, err
	}
	res := make([]ContactView, 0, len(rollups))
	for _, c := range rollups {
		view := ContactView{
			ID:                 c.ID,
			ContactIdentity:    c.ContactIdentity,
			Nickname:           c.Nickname,
			LastMessagePreview: c.LastMessagePreview,
			LastMessageAt:      c.LastMessageAt,
			UnreadCount:        c.UnreadCount,
			Status:             domain.StatusOffline,
		}
		if user, found, err := a.store.GetUser(c.ContactIdentity); err != nil {
			return nil, err
		} else if found {
			view.Status = user.Status
			view.IsParalyzed = user.IsParalyzed
		}
		if a.profiles != nil {
			if p, err := a.profiles.Profile(ctx, c.ContactIdentity); err == nil {
				view.ContactName = p.Name
				view.ProfileImage = p.ImageURL
			} else {
				slog.Debug("profile lookup failed", "identity", c.ContactIdentity, "err", err)
			}
		}
		res = append(res, view)
	}
	return res, nil
}

// AddContact creates an explicit contact entry for owner. The contact's
// presence row is created on first reference so later status joins have
// something to read.
func (a *App) AddContact(ctx context.Context, owner, contact, nickname string) (ContactView, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ContactView{}, errors.New("contact identity required")
	}
	if contact == owner {
		return ContactView{}, ErrSelfContact
	}
	if _, found, err := a.store.GetUser(contact); err != nil {
		return ContactView{}, err
	} else if !found {
		if err := a.store.SaveUser(domain.User{
			Identity:  contact,
			Status:    domain.StatusOffline,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return ContactView{}, err
		}
	}
	row, err := a.store.AddContact(owner, contact, nickname)
	if err != nil {
		if errors.Is(err, store.ErrContactExists) {
			return ContactView{}, ErrContactExists
		}
		return ContactView{}, err
	}
	view := ContactView{
		ID:              row.ID,
		ContactIdentity: row.ContactIdentity,
		Nickname:        row.Nickname,
		Status:          domain.StatusOffline,
	}
	if user, found, err := a.store.GetUser(contact); err == nil && found {
		view.Status = user.Status
		view.IsParalyzed = user.IsParalyzed
	}
	if a.profiles != nil {
		if p, err := a.profiles.Profile(ctx, contact); err == nil {
			view.ContactName = p.Name
			view.ProfileImage = p.ImageURL
		}
	}
	return view, nil
}

// MarkContactRead zeroes the unread counter for (owner, contact) after
// the owner opened the thread.
func (a *App) MarkContactRead(owner, contact string) error {
	return a.store.ResetUnread(owner, contact)
}
