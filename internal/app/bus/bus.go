/*
Package bus carries route requests from the instance that persisted a message to every instance
holding connections for its rooms.

LocalBus hands requests straight to the local router and suits a single instance. RedisBus
publishes them on a Redis channel that all instances subscribe to.
*/
package bus

import (
	"context"

	"quicktalk/internal/app/presence"
)

// RouteRequest asks every instance to push Event to its connections in Rooms, skipping the
// connections of Except when set.
type RouteRequest struct {
	Rooms  []string       `json:"rooms"`
	Except string         `json:"except,omitempty"`
	Event  presence.Event `json:"event"`
}

// Handler consumes route requests on the receiving side.
type Handler func(RouteRequest)

// Publisher sends route requests.
type Publisher interface {
	Publish(ctx context.Context, req RouteRequest) error
}

// Bus is a Publisher that also delivers requests to a Handler until Run returns.
type Bus interface {
	Publisher

	// Run delivers incoming requests until ctx is done.
	Run(ctx context.Context) error

	Close() error
}

// RouterHandler delivers requests through r.
func RouterHandler(r *presence.Router) Handler {
	return func(req RouteRequest) {
		r.RouteExcept(req.Event, req.Except, req.Rooms...)
	}
}
