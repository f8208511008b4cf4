package app

import "errors"

var (
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationForbidden = errors.New("conversation forbidden")
	ErrContactExists         = errors.New("contact already exists")
	ErrSelfContact           = errors.New("cannot add self as contact")
)
