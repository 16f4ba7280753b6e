package ws

import "encoding/json"

// Inbound event names. Dispatch is an exhaustive switch over this set;
// anything else is answered with an error event.
const (
	EventFriendRequest          = "friend_request"
	EventAcceptRequest          = "accept_request"
	EventDeclineRequest         = "decline_request"
	EventGetDirectConversations = "get_direct_conversations"
	EventStartConversation      = "start_conversation"
	EventGetMessages            = "get_messages"
	EventTextMessage            = "text_message"
	EventFileMessage            = "file_message"
	EventEnd                    = "end"
)

// Outbound event names.
const (
	EventNewFriendRequest    = "new_friend_request"
	EventRequestSent         = "request_sent"
	EventRequestAccepted     = "request_accepted"
	EventRequestDeclined     = "request_declined"
	EventDirectConversations = "direct_conversations"
	EventStartChat           = "start_chat"
	EventMessages            = "messages"
	EventNewMessage          = "new_message"
	EventError               = "error"
)

// Envelope is the outbound wire frame.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inboundEnvelope defers payload decoding until the event name is known.
type inboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// FriendRequestPayload asks to create a pending request.
type FriendRequestPayload struct {
	To   int `json:"to"`
	From int `json:"from"`
}

// RequestActionPayload accepts or declines a pending request.
type RequestActionPayload struct {
	RequestID int `json:"request_id"`
}

// StartConversationPayload opens (or resumes) a direct conversation.
type StartConversationPayload struct {
	To   int `json:"to"`
	From int `json:"from"`
}

// GetMessagesPayload asks for a conversation's history.
type GetMessagesPayload struct {
	ConversationID int `json:"conversation_id"`
}

// TextMessagePayload appends a text or link message.
type TextMessagePayload struct {
	To             int    `json:"to"`
	From           int    `json:"from"`
	Message        string `json:"message"`
	ConversationID int    `json:"conversation_id"`
	Kind           string `json:"type"`
}

// FileAttachment is the inline file content of a file message.
type FileAttachment struct {
	Name        string `json:"name"`
	Data        string `json:"data"` // base64
	ContentType string `json:"content_type"`
}

// FileMessagePayload appends a file message.
type FileMessagePayload struct {
	To             int            `json:"to"`
	From           int            `json:"from"`
	ConversationID int            `json:"conversation_id"`
	File           FileAttachment `json:"file"`
}

// ErrorPayload is the error acknowledgment sent back to the offending connection.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
