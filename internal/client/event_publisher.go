// Package client holds outbound integrations. The only one in this service
// is the workflow event stream.
package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
)

// Workflow event types published to the stream.
const (
	EventSubmitted    = "deviation_submitted"
	EventStepApproved = "deviation_step_approved"
	EventApproved     = "deviation_approved"
	EventRejected     = "deviation_rejected"
)

// EventPublisher publishes deviation workflow lifecycle events to NATS for
// downstream consumers (reporting, dashboards, audit sinks).
//
// Subject convention: deviations.crm.<event_type>
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so event-stream failures never interrupt approval operations.
// A nil publisher is safe to call.
type EventPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventType    string         `json:"event_type"`
	RequestID    string         `json:"request_id"`
	RequestType  deviation.Type `json:"request_type"`
	Status       string         `json:"status"`
	CurrentLevel int            `json:"current_level"`
	ActorID      string         `json:"actor_id,omitempty"`
	Comments     string         `json:"comments,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// NewEventPublisher creates a publisher backed by the given NATS connection.
func NewEventPublisher(nc *nats.Conn, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{nc: nc, log: log}
}

// PublishWorkflowEvent publishes one lifecycle event for a request.
// Subject: deviations.crm.<eventType>
func (p *EventPublisher) PublishWorkflowEvent(eventType string, req *deviation.Request, actorID, comments string) {
	if p == nil || p.nc == nil {
		return
	}

	event := &WorkflowEvent{
		EventType:    eventType,
		RequestID:    req.ID,
		RequestType:  req.Type,
		Status:       string(req.Status),
		CurrentLevel: req.CurrentLevel,
		ActorID:      actorID,
		Comments:     comments,
		OccurredAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("events: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("deviations.crm.%s", eventType)
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("request_id", req.ID).
			Msg("events: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("request_id", req.ID).
		Msg("events: event published")
}
