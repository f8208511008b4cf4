package app

import (
	"log/slog"
	"strings"
	"time"

	"biosync/internal/presence"
	"biosync/pkg/domain"
)

const offlineSavedNote = "User is offline, message saved"

// HandleRegister binds identity to conn, marks the identity online in
// the store, and acks. A blank identity is silently ignored; the
// connection stays usable for a later attempt.
func (a *App) HandleRegister(identity string, conn presence.Conn) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		slog.Warn("register_user missing identity", "conn", conn.ID())
		return
	}
	a.presence.Register(identity, conn)
	slog.Info("identity registered", "identity", identity, "conn", conn.ID(), "active", a.presence.Size())
	if err := a.store.SetUserStatus(identity, domain.StatusOnline); err != nil {
		// Presence stays registered; the persisted flag is advisory.
		slog.Error("mark identity online", "identity", identity, "err", err)
	}
	a.send(conn, EventRegistered, RegisteredPayload{
		Success:          true,
		Identity:         identity,
		ConnectionHandle: conn.ID(),
	})
}

// HandleSendMessage runs the delivery pipeline for one inbound message:
// validate, resolve conversation, persist, update the recipient's
// rollup, then deliver live or report saved-offline. The sender always
// receives exactly one terminal outcome event.
func (a *App) HandleSendMessage(sender presence.Conn, from, to, text string) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || text == "" {
		a.send(sender, EventMessageFailed, MessageFailedPayload{Error: "Missing required fields"})
		return
	}

	conv, err := a.resolveConversation(from, to, true)
	if err != nil {
		a.failSend(sender, err)
		return
	}
	msg, err := a.store.AppendMessage(conv.ID, from, to, text, domain.MessageTypeText)
	if err != nil {
		a.failSend(sender, err)
		return
	}
	if err := a.store.RecordInboundMessage(to, from, text, msg.CreatedAt); err != nil {
		a.failSend(sender, err)
		return
	}

	if recipient, ok := a.presence.Lookup(to); ok {
		delivered := a.send(recipient, EventReceiveMessage, ReceiveMessagePayload{
			MessageID:      msg.ID,
			From:           from,
			Text:           text,
			Timestamp:      msg.CreatedAt,
			ConversationID: conv.ID,
			MessageType:    msg.Type,
		})
		if delivered {
			a.send(sender, EventMessageDelivered, MessageDeliveredPayload{
				MessageID: msg.ID,
				Status:    DeliveryStatusDelivered,
				Timestamp: msg.CreatedAt,
			})
			return
		}
		// The recipient's connection died mid-delivery; the message is
		// already persisted, so fall through to the saved outcome.
	}
	a.send(sender, EventMessageDelivered, MessageDeliveredPayload{
		MessageID: msg.ID,
		Status:    DeliveryStatusSaved,
		Timestamp: msg.CreatedAt,
		Note:      offlineSavedNote,
	})
}

func (a *App) failSend(sender presence.Conn, err error) {
	slog.Error("send pipeline failed", "err", err)
	a.send(sender, EventMessageFailed, MessageFailedPayload{
		Error:   "Failed to send message",
		Details: err.Error(),
	})
}

// HandleMarkAsRead applies the read transition to every requested id
// and echoes back the ids that exist. Unknown ids are skipped; marking
// an already-read message again is harmless.
func (a *App) HandleMarkAsRead(requester presence.Conn, messageIDs []int64) {
	if len(messageIDs) == 0 {
		return
	}
	readAt := time.Now().UTC()
	applied := make([]int64, 0, len(messageIDs))
	for _, id := range messageIDs {
		_, ok, err := a.store.MarkMessageRead(id, readAt)
		if err != nil {
			slog.Error("mark message read", "message_id", id, "err", err)
			return
		}
		if ok {
			applied = append(applied, id)
		}
	}
	if len(applied) == 0 {
		return
	}
	a.send(requester, EventMessagesRead, MessagesReadPayload{
		MessageIDs: applied,
		ReadAt:     readAt,
	})
}

// HandleTyping forwards a typing indicator to the recipient if they are
// live. Offline recipients drop it: typing state is transient and never
// queued.
func (a *App) HandleTyping(from, to string, isTyping bool) {
	recipient, ok := a.presence.Lookup(to)
	if !ok {
		return
	}
	a.send(recipient, EventUserTyping, UserTypingPayload{
		UserID:   from,
		IsTyping: isTyping,
	})
}

// HandleDisconnect removes conn's binding and marks the identity
// offline. A conn with no current binding (never registered, or the
// identity already reconnected elsewhere) is a no-op.
func (a *App) HandleDisconnect(conn presence.Conn) {
	identity, ok := a.presence.Unregister(conn)
	if !ok {
		return
	}
	slog.Info("identity disconnected", "identity", identity, "conn", conn.ID(), "active", a.presence.Size())
	if err := a.store.SetUserStatus(identity, domain.StatusOffline); err != nil {
		slog.Error("mark identity offline", "identity", identity, "err", err)
	}
}
