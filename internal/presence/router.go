package presence

import (
	"tawk-service/internal/logger"
	"tawk-service/internal/observability"
)

// Router is the single fan-out chokepoint. It resolves the recipient's
// connection through the registry and pushes the event, or drops it silently
// when the recipient is offline. At-most-once: no retry, no queue.
type Router struct {
	registry *Registry
	log      *logger.Logger
}

// NewRouter constructs a Router.
func NewRouter(registry *Registry, log *logger.Logger) *Router {
	return &Router{registry: registry, log: log}
}

// Deliver pushes (event, payload) to the user's connection if one exists.
// Offline recipients are an expected no-op, never an error.
func (d *Router) Deliver(userID int, event string, payload any) {
	peer, ok := d.registry.Resolve(userID)
	if !ok {
		observability.IncDeliveryDropped(event)
		return
	}
	if err := peer.Send(event, payload); err != nil {
		d.log.Warn("delivery failed", "user_id", userID, "event", event, "error", err)
		observability.IncDeliveryDropped(event)
	}
}
