// Package service orchestrates deviation request creation, approval
// transitions and worklist queries over the request store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/client"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/logger"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/store"
)

// EventPublisher publishes workflow lifecycle events. Satisfied by
// *client.EventPublisher; tests substitute a recorder.
type EventPublisher interface {
	PublishWorkflowEvent(eventType string, req *deviation.Request, actorID, comments string)
}

// DeviationService is the approval workflow engine's front door: it is the
// only code path that creates requests or drives their transitions.
type DeviationService struct {
	store  store.Store
	events EventPublisher
	log    *logger.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewDeviationService creates a new DeviationService. events may be nil.
func NewDeviationService(st store.Store, events EventPublisher, log *logger.Logger) *DeviationService {
	return &DeviationService{
		store:  st,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequestInput carries the caller-supplied fields of a new request.
// Identity, timestamps, status, level and the approver chain are engine-
// assigned; callers cannot supply them.
type CreateRequestInput struct {
	Type         deviation.Type
	CustomerName string
	UnitNumber   string
	Description  string
	CreatedBy    deviation.Identity
	Details      deviation.Details
}

// CreateRequest builds and stores a new deviation request: fresh id, both
// timestamps now, status pending, level 1, approver chain seated from the
// static per-type table. Field-level payload completeness is not validated
// here; that is the form layer's concern.
func (s *DeviationService) CreateRequest(ctx context.Context, in *CreateRequestInput) (*deviation.Request, error) {
	if !in.Type.Valid() {
		return nil, errors.InvalidInput("type", fmt.Sprintf("unknown deviation type %q", in.Type))
	}
	if in.Details != nil && in.Details.DeviationType() != in.Type {
		return nil, errors.InvalidInput("details",
			fmt.Sprintf("details are for type %q, request is %q", in.Details.DeviationType(), in.Type))
	}

	approvers, err := deviation.ApproverChain(in.Type)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &deviation.Request{
		ID:           fmt.Sprintf("REQ-%s", uuid.NewString()),
		Type:         in.Type,
		Status:       deviation.StatusPending,
		CustomerName: in.CustomerName,
		UnitNumber:   in.UnitNumber,
		Description:  in.Description,
		CreatedBy:    in.CreatedBy,
		Approvers:    approvers,
		CurrentLevel: 1,
		Details:      in.Details,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Add(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("type", string(req.Type)).
		Int("approvers", len(req.Approvers)).
		Msg("Deviation request created")

	s.publish(client.EventSubmitted, req, in.CreatedBy.ID, "")
	return req.Clone(), nil
}

// Approve records an approval on the request's current seat. Comments are
// optional. Acting on a terminal request fails with a conflict; an
// approverID that is not the current seat is a no-op.
func (s *DeviationService) Approve(ctx context.Context, requestID, approverID, comments string) error {
	var after *deviation.Request
	var acted bool

	err := s.store.Mutate(ctx, requestID, func(req *deviation.Request) error {
		before := req.CurrentLevel
		beforeStatus := req.Status
		if err := req.ApplyApprove(approverID, comments, s.now()); err != nil {
			return err
		}
		acted = req.CurrentLevel != before || req.Status != beforeStatus
		after = req.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	if !acted {
		s.log.Warn().
			Str("request_id", requestID).
			Str("approver_id", approverID).
			Msg("Approve ignored: approver is not the current seat")
		return nil
	}

	s.log.Info().
		Str("request_id", requestID).
		Str("approver_id", approverID).
		Str("status", string(after.Status)).
		Int("current_level", after.CurrentLevel).
		Msg("Deviation request approved at current level")

	if after.Status == deviation.StatusApproved {
		s.publish(client.EventApproved, after, approverID, comments)
	} else {
		s.publish(client.EventStepApproved, after, approverID, comments)
	}
	return nil
}

// Reject records a rejection. Comments are mandatory; rejection is terminal
// regardless of the seat it lands on.
func (s *DeviationService) Reject(ctx context.Context, requestID, approverID, comments string) error {
	var after *deviation.Request

	err := s.store.Mutate(ctx, requestID, func(req *deviation.Request) error {
		if err := req.ApplyReject(approverID, comments, s.now()); err != nil {
			return err
		}
		after = req.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("request_id", requestID).
		Str("approver_id", approverID).
		Msg("Deviation request rejected")

	s.publish(client.EventRejected, after, approverID, comments)
	return nil
}

// GetRequest returns one request by id.
func (s *DeviationService) GetRequest(ctx context.Context, id string) (*deviation.Request, error) {
	return s.store.Get(ctx, id)
}

// ListRequests returns all requests, most-recent-first.
func (s *DeviationService) ListRequests(ctx context.Context) ([]*deviation.Request, error) {
	return s.store.List(ctx)
}

// ListByStatus returns all requests with exactly the given status.
func (s *DeviationService) ListByStatus(ctx context.Context, status deviation.Status) ([]*deviation.Request, error) {
	if !status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.store.ListByStatus(ctx, status)
}

// ListByType returns all requests with exactly the given type.
func (s *DeviationService) ListByType(ctx context.Context, t deviation.Type) ([]*deviation.Request, error) {
	if !t.Valid() {
		return nil, errors.InvalidInput("type", fmt.Sprintf("unknown deviation type %q", t))
	}
	return s.store.ListByType(ctx, t)
}

// ListPendingApprovals returns all requests awaiting action. When
// approverID is non-empty the set is narrowed to requests whose current
// seat is that approver.
func (s *DeviationService) ListPendingApprovals(ctx context.Context, approverID string) ([]*deviation.Request, error) {
	requests, err := s.store.ListPendingApprovals(ctx)
	if err != nil {
		return nil, err
	}
	if approverID == "" {
		return requests, nil
	}

	filtered := make([]*deviation.Request, 0, len(requests))
	for _, req := range requests {
		if cur := req.CurrentApprover(); cur != nil && cur.ID == approverID {
			filtered = append(filtered, req)
		}
	}
	return filtered, nil
}

func (s *DeviationService) publish(eventType string, req *deviation.Request, actorID, comments string) {
	if s.events == nil {
		return
	}
	s.events.PublishWorkflowEvent(eventType, req, actorID, comments)
}
