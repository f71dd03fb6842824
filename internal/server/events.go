package server

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventsSubject is where lifecycle events are published.
const EventsSubject = "atomic.events"

const (
	EventControllerStop  = "controller.stop"
	EventNodeCreated     = "node.created"
	EventNodeDeleted     = "node.deleted"
	EventNodeToggled     = "node.toggled"
	EventGroupCreated    = "group.created"
	EventGroupDeleted    = "group.deleted"
	EventGroupToggled    = "group.toggled"
	EventServerScheduled = "server.scheduled"
	EventServerRunning   = "server.running"
	EventServerDeleted   = "server.deleted"
	EventUsersMoved      = "users.transferred"
)

// Publisher is satisfied by the NATS broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

type Event struct {
	Event  string `json:"event"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Node   string `json:"node,omitempty"`
	Active *bool  `json:"active,omitempty"`
	Count  uint32 `json:"count,omitempty"`
	Time   int64  `json:"time"`
}

// emit publishes ev if a publisher is configured. Failures are logged,
// never returned: events are best effort.
func (s *Server) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	ev.Time = time.Now().Unix()
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("encode event", zap.String("event", ev.Event), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, EventsSubject, payload); err != nil {
		s.logger.Warn("publish event failed", zap.String("event", ev.Event), zap.Error(err))
	}
}
