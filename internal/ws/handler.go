package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"tawk-service/internal/auth"
	"tawk-service/internal/logger"
	"tawk-service/internal/observability"
	"tawk-service/internal/presence"
	"tawk-service/internal/repositories"
)

const routingKey = "ws_events.sessions"

// SocketHandler owns the websocket endpoint: it authenticates the connecting
// identity, upgrades the connection and hands it to a Session.
type SocketHandler struct {
	registry *presence.Registry
	tokens   *auth.TokenManager
	users    repositories.UserRepository
	events   *EventHandler
	log      *logger.Logger
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(registry *presence.Registry, tokens *auth.TokenManager, users repositories.UserRepository, events *EventHandler, log *logger.Logger) *SocketHandler {
	return &SocketHandler{
		registry: registry,
		tokens:   tokens,
		users:    users,
		events:   events,
		log:      log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers presence and runs the session.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("tawk-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	sess := NewSession(conn, userID, info, h.events, h.registry, h.log)
	h.registry.Register(c.Request.Context(), userID, info.ConnID, sess)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycle(ctx, "ws_connect", "", info)

	go func() {
		// Presence is cleared on every exit path, including abnormal
		// disconnects: transport close is an implicit end event.
		defer func() {
			h.registry.Unregister(context.Background(), userID, info.ConnID)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			conn.Close()
		}()

		reason := sess.Run()
		publishLifecycle(context.Background(), "ws_disconnect", reason, info)
		if reason != "" {
			h.log.Info("socket closed", "user_id", userID, "conn_id", info.ConnID, "reason", reason)
		}
	}()
}

func (h *SocketHandler) authenticate(ctx context.Context, header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid token")
	}

	userID, issuedAt, err := h.tokens.Parse(parts[1])
	if err != nil {
		return 0, err
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.PasswordChangedAfter(issuedAt) {
		return 0, fmt.Errorf("token issued before password change")
	}
	return user.ID, nil
}

func publishLifecycle(ctx context.Context, event, reason string, info ConnInfo) {
	_ = observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
