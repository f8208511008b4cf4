package app

import (
	"errors"
	"fmt"
	"time"

	"biosync/internal/store"
	"biosync/pkg/domain"
)

const defaultPageLimit = 50

// ConversationSummary is a conversation seen from one participant's
// side.
type ConversationSummary struct {
	ID            int64     `json:"id"`
	OtherIdentity string    `json:"otherIdentity"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// ThreadMessage is a message decorated for a specific reader.
type ThreadMessage struct {
	domain.Message
	IsMine bool `json:"isMine"`
}

// resolveConversation finds or creates the conversation for an
// unordered pair. Lookup-then-insert races against the other
// participant's first message; the store's pair-key constraint turns
// the loser's insert into ErrConversationExists, which is recovered by
// re-resolving. touch bumps last_message_at and is only set on the
// send path, never for passive get-or-create reads.
func (a *App) resolveConversation(from, to string, touch bool) (domain.Conversation, error) {
	conv, found, err := a.store.GetConversationByPair(from, to)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("lookup conversation: %w", err)
	}
	if !found {
		conv, err = a.store.CreateConversation(from, to)
		switch {
		case err == nil:
			// A fresh row already carries last_message_at = now.
			return conv, nil
		case errors.Is(err, store.ErrConversationExists):
			conv, found, err = a.store.GetConversationByPair(from, to)
			if err != nil {
				return domain.Conversation{}, fmt.Errorf("re-resolve conversation: %w", err)
			}
			if !found {
				return domain.Conversation{}, errors.New("conversation missing after pair conflict")
			}
		default:
			return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
		}
	}
	if touch {
		now := time.Now().UTC()
		if err := a.store.TouchConversation(conv.ID, now); err != nil {
			return domain.Conversation{}, fmt.Errorf("touch conversation: %w", err)
		}
		conv.LastMessageAt = now
	}
	return conv, nil
}

// ListConversations returns the viewer's conversations, most recently
// active first, with the other party computed relative to the viewer.
func (a *App) ListConversations(viewer string) ([]ConversationSummary, error) {
	convs, err := a.store.ListConversations(viewer)
	if err != nil {
		return nil, err
	}
	res := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		res = append(res, ConversationSummary{
			ID:            c.ID,
			OtherIdentity: c.Other(viewer),
			CreatedAt:     c.CreatedAt,
			LastMessageAt: c.LastMessageAt,
		})
	}
	return res, nil
}

// ConversationMessages returns one page of a conversation the viewer
// participates in, oldest first. The storage layer pages newest-first;
// the reversal here hands clients chronological order regardless of
// page bounds.
func (a *App) ConversationMessages(viewer string, conversationID int64, limit, offset int) ([]ThreadMessage, error) {
	conv, found, err := a.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrConversationNotFound
	}
	if !conv.Has(viewer) {
		return nil, ErrConversationForbidden
	}
	return a.messagePage(viewer, conversationID, limit, offset)
}

// MessagesWithContact resolves (without touching) the conversation
// between viewer and contact, creating it on first access, and returns
// one page of it.
func (a *App) MessagesWithContact(viewer, contact string, limit, offset int) (int64, []ThreadMessage, error) {
	conv, err := a.resolveConversation(viewer, contact, false)
	if err != nil {
		return 0, nil, err
	}
	msgs, err := a.messagePage(viewer, conv.ID, limit, offset)
	if err != nil {
		return 0, nil, err
	}
	return conv.ID, msgs, nil
}

func (a *App) messagePage(viewer string, conversationID int64, limit, offset int) ([]ThreadMessage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := a.store.ListMessages(conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	res := make([]ThreadMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		res = append(res, ThreadMessage{
			Message: msgs[i],
			IsMine:  msgs[i].From == viewer,
		})
	}
	return res, nil
}
