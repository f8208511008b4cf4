package app

import "time"

// Server -> client event names.
const (
	EventRegistered       = "registered"
	EventReceiveMessage   = "receive_message"
	EventMessageDelivered = "message_delivered"
	EventMessageFailed    = "message_failed"
	EventMessagesRead     = "messages_read"
	EventUserTyping       = "user_typing"
)

// Delivery outcomes reported to the sender. Every send attempt
// terminates in exactly one of delivered, saved, or message_failed.
const (
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusSaved     = "saved"
)

type RegisteredPayload struct {
	Success          bool   `json:"success"`
	Identity         string `json:"identity"`
	ConnectionHandle string `json:"connectionHandle"`
}

type ReceiveMessagePayload struct {
	MessageID      int64     `json:"messageId"`
	From           string    `json:"from"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID int64     `json:"conversationId"`
	MessageType    string    `json:"messageType"`
}

type MessageDeliveredPayload struct {
	MessageID int64     `json:"messageId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

type MessageFailedPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MessagesReadPayload struct {
	MessageIDs []int64   `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
