// Package events publishes lifecycle notifications for downstream consumers
// (notification workers, reporting). Delivery is best effort.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	ApplicationSubmitted     = "application.submitted"
	ApplicationStatusChanged = "application.status_changed"
	DocumentUploaded         = "document.uploaded"
	DocumentReviewed         = "document.reviewed"
	MessageSent              = "message.sent"
	ContactReceived          = "contact.received"
)

type Event struct {
	Type          string         `json:"type"`
	ApplicationID string         `json:"application_id,omitempty"`
	ClientID      string         `json:"client_id,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	At            time.Time      `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the log. It is used when no broker is set.
type LogPublisher struct {
	lg *zap.SugaredLogger
}

func NewLogPublisher(lg *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{lg: lg}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.lg.Infow("lifecycle event",
		"type", ev.Type,
		"application_id", ev.ApplicationID,
		"client_id", ev.ClientID,
		"actor_id", ev.ActorID,
	)
	return nil
}
