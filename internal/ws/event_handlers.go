package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tawk-service/internal/logger"
	"tawk-service/internal/models"
	"tawk-service/internal/presence"
	"tawk-service/internal/repositories"
)

// ErrValidation marks malformed or inconsistent inbound payloads. Its text is
// safe to echo back to the client.
var ErrValidation = errors.New("invalid payload")

// ObjectStorage stores file message payloads and returns a stable URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// EventHandler implements the inbound socket events. Every method runs under
// a bounded context and returns an error instead of panicking; the session
// turns failures into error acknowledgments.
type EventHandler struct {
	users         repositories.UserRepository
	friends       repositories.FriendRepository
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	router        *presence.Router
	files         ObjectStorage
	log           *logger.Logger
	opTimeout     time.Duration
}

// NewEventHandler constructs an EventHandler. files may be nil, which
// disables file messages.
func NewEventHandler(
	users repositories.UserRepository,
	friends repositories.FriendRepository,
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	router *presence.Router,
	files ObjectStorage,
	log *logger.Logger,
) *EventHandler {
	return &EventHandler{
		users:         users,
		friends:       friends,
		conversations: conversations,
		messages:      messages,
		router:        router,
		files:         files,
		log:           log,
		opTimeout:     5 * time.Second,
	}
}

// senderID resolves the acting user: the authenticated session identity wins,
// a mismatching "from" field in the payload is rejected.
func senderID(sessionUserID, payloadFrom int) (int, error) {
	if payloadFrom != 0 && payloadFrom != sessionUserID {
		return 0, fmt.Errorf("%w: from does not match connection identity", ErrValidation)
	}
	return sessionUserID, nil
}

// FriendRequest creates a pending request and notifies both parties.
func (h *EventHandler) FriendRequest(ctx context.Context, reply presence.Peer, userID int, p FriendRequestPayload) error {
	from, err := senderID(userID, p.From)
	if err != nil {
		return err
	}
	if p.To == 0 {
		return fmt.Errorf("%w: missing to", ErrValidation)
	}
	if p.To == from {
		return fmt.Errorf("%w: cannot befriend yourself", ErrValidation)
	}

	if _, err := h.users.GetByID(ctx, p.To); err != nil {
		return err
	}

	already, err := h.friends.AreFriends(ctx, from, p.To)
	if err != nil {
		return err
	}
	if already {
		return fmt.Errorf("%w: users are already friends", ErrValidation)
	}

	pending, err := h.friends.HasPendingBetween(ctx, from, p.To)
	if err != nil {
		return err
	}
	if pending {
		return repositories.ErrDuplicateRequest
	}

	req, err := h.friends.CreateRequest(ctx, from, p.To)
	if err != nil {
		return err
	}

	h.router.Deliver(p.To, EventNewFriendRequest, map[string]any{
		"message": "New friend request received",
		"request": req,
	})
	h.router.Deliver(from, EventRequestSent, map[string]any{
		"message": "Request sent successfully",
		"request": req,
	})
	return nil
}

// AcceptRequest collapses a pending request into a symmetric friendship and
// notifies both parties.
func (h *EventHandler) AcceptRequest(ctx context.Context, reply presence.Peer, userID int, p RequestActionPayload) error {
	if p.RequestID == 0 {
		return fmt.Errorf("%w: missing request_id", ErrValidation)
	}

	req, err := h.friends.AcceptRequest(ctx, p.RequestID)
	if err != nil {
		return err
	}

	payload := map[string]any{"message": "Friend request accepted", "request_id": req.ID}
	h.router.Deliver(req.SenderID, EventRequestAccepted, payload)
	h.router.Deliver(req.RecipientID, EventRequestAccepted, payload)
	return nil
}

// DeclineRequest removes a pending request without creating a friendship.
func (h *EventHandler) DeclineRequest(ctx context.Context, reply presence.Peer, userID int, p RequestActionPayload) error {
	if p.RequestID == 0 {
		return fmt.Errorf("%w: missing request_id", ErrValidation)
	}

	req, err := h.friends.DeclineRequest(ctx, p.RequestID)
	if err != nil {
		return err
	}

	h.router.Deliver(req.SenderID, EventRequestDeclined, map[string]any{
		"message":    "Friend request declined",
		"request_id": req.ID,
	})
	return nil
}

// DirectConversations answers with every conversation of the caller.
func (h *EventHandler) DirectConversations(ctx context.Context, reply presence.Peer, userID int) error {
	list, err := h.conversations.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.ConversationSummary{}
	}
	return reply.Send(EventDirectConversations, list)
}

// StartConversation finds or creates the conversation with the peer and
// answers with it plus its history.
func (h *EventHandler) StartConversation(ctx context.Context, reply presence.Peer, userID int, p StartConversationPayload) error {
	from, err := senderID(userID, p.From)
	if err != nil {
		return err
	}
	if p.To == 0 {
		return fmt.Errorf("%w: missing to", ErrValidation)
	}

	conv, created, err := h.conversations.FindOrCreate(ctx, from, p.To)
	if err != nil {
		return err
	}

	var history []models.Message
	if !created {
		history, err = h.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
	}
	if history == nil {
		history = []models.Message{}
	}

	return reply.Send(EventStartChat, map[string]any{
		"conversation": conv,
		"messages":     history,
	})
}

// Messages answers with the full history of a conversation the caller belongs to.
func (h *EventHandler) Messages(ctx context.Context, reply presence.Peer, userID int, p GetMessagesPayload) error {
	if p.ConversationID == 0 {
		return fmt.Errorf("%w: missing conversation_id", ErrValidation)
	}

	member, err := h.conversations.IsParticipant(ctx, p.ConversationID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: not a conversation participant", ErrValidation)
	}

	history, err := h.messages.ListByConversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if history == nil {
		history = []models.Message{}
	}
	return reply.Send(EventMessages, map[string]any{
		"conversation_id": p.ConversationID,
		"messages":        history,
	})
}

// TextMessage appends a text (or link) message and fans it out to both
// participants that are online.
func (h *EventHandler) TextMessage(ctx context.Context, reply presence.Peer, userID int, p TextMessagePayload) error {
	from, err := senderID(userID, p.From)
	if err != nil {
		return err
	}
	if p.ConversationID == 0 || p.To == 0 || p.Message == "" {
		return fmt.Errorf("%w: to, conversation_id and message are required", ErrValidation)
	}

	kind := p.Kind
	switch kind {
	case "":
		kind = models.MessageKindText
	case models.MessageKindText, models.MessageKindLink:
	default:
		return fmt.Errorf("%w: unsupported message type %q", ErrValidation, p.Kind)
	}

	conv, err := h.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(from) || !conv.HasParticipant(p.To) {
		return fmt.Errorf("%w: users do not belong to conversation", ErrValidation)
	}

	msg, err := h.messages.Append(ctx, conv.ID, from, p.To, kind, p.Message, nil)
	if err != nil {
		return err
	}

	h.fanOutMessage(conv, msg)
	return nil
}

// FileMessage stores the attachment in object storage and appends a file
// message carrying its URL.
func (h *EventHandler) FileMessage(ctx context.Context, reply presence.Peer, userID int, p FileMessagePayload) error {
	if h.files == nil {
		return errors.New("file storage is not configured")
	}
	from, err := senderID(userID, p.From)
	if err != nil {
		return err
	}
	if p.ConversationID == 0 || p.To == 0 || p.File.Name == "" || p.File.Data == "" {
		return fmt.Errorf("%w: to, conversation_id and file are required", ErrValidation)
	}

	conv, err := h.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(from) || !conv.HasParticipant(p.To) {
		return fmt.Errorf("%w: users do not belong to conversation", ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(p.File.Data)
	if err != nil {
		return fmt.Errorf("%w: file data is not valid base64", ErrValidation)
	}

	key := fmt.Sprintf("%d/%s-%s", conv.ID, uuid.NewString(), p.File.Name)
	url, err := h.files.Upload(ctx, key, data, p.File.ContentType)
	if err != nil {
		return fmt.Errorf("store file: %w", err)
	}

	msg, err := h.messages.Append(ctx, conv.ID, from, p.To, models.MessageKindFile, p.File.Name, &url)
	if err != nil {
		return err
	}

	h.fanOutMessage(conv, msg)
	return nil
}

func (h *EventHandler) fanOutMessage(conv models.Conversation, msg models.Message) {
	payload := map[string]any{
		"conversation_id": conv.ID,
		"message":         msg,
	}
	h.router.Deliver(conv.User1ID, EventNewMessage, payload)
	h.router.Deliver(conv.User2ID, EventNewMessage, payload)
}
