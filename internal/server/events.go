package server

import "encoding/json"

// Client -> server event names.
const (
	eventRegisterUser = "register_user"
	eventSendMessage  = "send_message"
	eventMarkAsRead   = "mark_as_read"
	eventTypingStart  = "typing_start"
	eventTypingStop   = "typing_stop"
)

// envelope frames every socket event in both directions. The payload
// stays raw until the event name selects its concrete type.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type registerUserPayload struct {
	Identity string `json:"identity"`
}

type sendMessagePayload struct {
	FromIdentity string `json:"fromIdentity"`
	ToIdentity   string `json:"toIdentity"`
	Text         string `json:"text"`
}

type markAsReadPayload struct {
	MessageIDs []int64 `json:"messageIds"`
}

type typingPayload struct {
	FromIdentity string `json:"fromIdentity"`
	ToIdentity   string `json:"toIdentity"`
}
