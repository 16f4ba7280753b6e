package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"tawk-service/internal/logger"
	"tawk-service/internal/observability"
	"tawk-service/internal/presence"
	"tawk-service/internal/repositories"
)

// errSessionEnded signals an explicit end event; the read loop treats it as a
// clean shutdown.
var errSessionEnded = errors.New("session ended")

// Session is the per-connection controller. It registers as the user's
// presence peer and serializes all writes to the underlying connection.
type Session struct {
	conn     *websocket.Conn
	userID   int
	info     ConnInfo
	handler  *EventHandler
	registry *presence.Registry
	log      *logger.Logger
	writeMu  sync.Mutex
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, userID int, info ConnInfo, handler *EventHandler, registry *presence.Registry, log *logger.Logger) *Session {
	return &Session{
		conn:     conn,
		userID:   userID,
		info:     info,
		handler:  handler,
		registry: registry,
		log:      log,
	}
}

// Send pushes one event frame to the connection. Safe for concurrent use.
func (s *Session) Send(event string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(Envelope{Event: event, Payload: payload})
}

var _ presence.Peer = (*Session)(nil)

// Run processes inbound frames until the connection closes or the client
// sends an explicit end event. It returns the close reason for telemetry.
func (s *Session) Run() string {
	for {
		var env inboundEnvelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ""
			}
			return err.Error()
		}

		if err := s.dispatch(env); err != nil {
			if errors.Is(err, errSessionEnded) {
				return ""
			}
			return err.Error()
		}
	}
}

// dispatch decodes and runs one event. Handler failures are answered with an
// error acknowledgment and never tear down the connection or the process.
func (s *Session) dispatch(env inboundEnvelope) error {
	observability.IncWSEvent(env.Event)

	ctx, cancel := context.WithTimeout(context.Background(), s.handler.opTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case EventFriendRequest:
		var p FriendRequestPayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.FriendRequest(ctx, s, s.userID, p)
		}
	case EventAcceptRequest:
		var p RequestActionPayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.AcceptRequest(ctx, s, s.userID, p)
		}
	case EventDeclineRequest:
		var p RequestActionPayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.DeclineRequest(ctx, s, s.userID, p)
		}
	case EventGetDirectConversations:
		err = s.handler.DirectConversations(ctx, s, s.userID)
	case EventStartConversation:
		var p StartConversationPayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.StartConversation(ctx, s, s.userID, p)
		}
	case EventGetMessages:
		var p GetMessagesPayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.Messages(ctx, s, s.userID, p)
		}
	case EventTextMessage:
		var p TextMessagePayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.TextMessage(ctx, s, s.userID, p)
		}
	case EventFileMessage:
		var p FileMessagePayload
		if err = decode(env.Payload, &p); err == nil {
			err = s.handler.FileMessage(ctx, s, s.userID, p)
		}
	case EventEnd:
		return errSessionEnded
	default:
		err = fmt.Errorf("%w: unknown event %q", ErrValidation, env.Event)
	}

	if err != nil {
		observability.IncWSEventError(env.Event)
		s.log.Warn("socket event failed",
			"event", env.Event,
			"user_id", s.userID,
			"conn_id", s.info.ConnID,
			"error", err)
		_ = s.Send(EventError, ErrorPayload{Event: env.Event, Message: publicError(err)})
	}
	return nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrValidation)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// publicError maps an internal error to a message safe to send to the client.
func publicError(err error) string {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrRequestNotFound),
		errors.Is(err, repositories.ErrDuplicateRequest),
		errors.Is(err, repositories.ErrConversationNotFound):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	default:
		return "internal error"
	}
}
