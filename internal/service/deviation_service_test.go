package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/client"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	apperrors "github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/logger"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/store"
)

// eventRecorder captures published workflow events for assertions.
type eventRecorder struct {
	events []recordedEvent
}

type recordedEvent struct {
	eventType string
	requestID string
	actorID   string
}

func (r *eventRecorder) PublishWorkflowEvent(eventType string, req *deviation.Request, actorID, _ string) {
	r.events = append(r.events, recordedEvent{eventType: eventType, requestID: req.ID, actorID: actorID})
}

func newTestService(t *testing.T) (*DeviationService, *eventRecorder) {
	t.Helper()

	rec := &eventRecorder{}
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	svc := NewDeviationService(store.NewMemoryStore(), rec, log)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc, rec
}

func createTestRequest(t *testing.T, svc *DeviationService, typ deviation.Type) *deviation.Request {
	t.Helper()

	req, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
		Type:         typ,
		CustomerName: "Arjun Malhotra",
		UnitNumber:   "A-1204",
		Description:  "Requested exception",
		CreatedBy:    deviation.Identity{ID: "u1", Name: "Rahul Mehta", Role: "CRM Manager"},
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequestAssignsEngineFields(t *testing.T) {
	svc, rec := newTestService(t)

	req, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
		Type:         deviation.TypeRegistration,
		CustomerName: "Arjun Malhotra",
		UnitNumber:   "A-1204",
		CreatedBy:    deviation.Identity{ID: "u1", Name: "Rahul Mehta", Role: "CRM Manager"},
		Details:      deviation.RegistrationDetails{ProposedRegistrationDate: "2026-06-01"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(req.ID, "REQ-"))
	assert.Equal(t, deviation.StatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentLevel)
	assert.Len(t, req.Approvers, 3)
	assert.Equal(t, req.CreatedAt, req.UpdatedAt)
	for _, a := range req.Approvers {
		assert.Equal(t, deviation.ApproverPending, a.Status)
	}

	require.Len(t, rec.events, 1)
	assert.Equal(t, client.EventSubmitted, rec.events[0].eventType)
	assert.Equal(t, req.ID, rec.events[0].requestID)
	assert.Equal(t, "u1", rec.events[0].actorID)
}

func TestCreateRequestIDsAreUnique(t *testing.T) {
	svc, _ := newTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		req := createTestRequest(t, svc, deviation.TypeCashback)
		assert.False(t, seen[req.ID])
		seen[req.ID] = true
	}
}

func TestCreateRequestInvalidType(t *testing.T) {
	svc, rec := newTestService(t)

	_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{Type: "lease"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	assert.Empty(t, rec.events)
}

func TestCreateRequestDetailsTypeMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
		Type:    deviation.TypeRegistration,
		Details: deviation.CashbackDetails{RequestedCashbackAmount: 5000},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestApproveAdvancesAndPublishes(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	req := createTestRequest(t, svc, deviation.TypeRegistration)

	require.NoError(t, svc.Approve(ctx, req.ID, "a1", "Looks fine"))

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusInReview, got.Status)
	assert.Equal(t, 2, got.CurrentLevel)

	require.NoError(t, svc.Approve(ctx, req.ID, "a2", ""))
	require.NoError(t, svc.Approve(ctx, req.ID, "a3", "Final"))

	got, err = svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusApproved, got.Status)

	// submitted, step, step, final approve
	require.Len(t, rec.events, 4)
	assert.Equal(t, client.EventStepApproved, rec.events[1].eventType)
	assert.Equal(t, client.EventStepApproved, rec.events[2].eventType)
	assert.Equal(t, client.EventApproved, rec.events[3].eventType)
}

func TestApproveNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Approve(context.Background(), "REQ-missing", "a1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestApproveWrongSeatPublishesNothing(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	req := createTestRequest(t, svc, deviation.TypeRegistration)
	require.NoError(t, svc.Approve(ctx, req.ID, "a3", "out of order"))

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusPending, got.Status)
	assert.Len(t, rec.events, 1) // only the submission event
}

func TestRejectTerminatesChain(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	req := createTestRequest(t, svc, deviation.TypeCancellation)

	require.NoError(t, svc.Approve(ctx, req.ID, "a1", ""))
	require.NoError(t, svc.Reject(ctx, req.ID, "a12", "Financial constraints"))

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusRejected, got.Status)
	assert.Equal(t, 2, got.CurrentLevel)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, client.EventRejected, last.eventType)
	assert.Equal(t, "a12", last.actorID)

	// Further actions conflict.
	err = svc.Approve(ctx, req.ID, "a13", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestRejectRequiresComments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := createTestRequest(t, svc, deviation.TypePreEMI)

	err := svc.Reject(ctx, req.ID, "a1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusPending, got.Status)
}

func TestListPendingApprovalsFilterByApprover(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg := createTestRequest(t, svc, deviation.TypeRegistration)
	createTestRequest(t, svc, deviation.TypePossession)

	// Advance the registration request to its Legal Head seat.
	require.NoError(t, svc.Approve(ctx, reg.ID, "a1", ""))

	all, err := svc.ListPendingApprovals(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forLegal, err := svc.ListPendingApprovals(ctx, "a2")
	require.NoError(t, err)
	require.Len(t, forLegal, 1)
	assert.Equal(t, reg.ID, forLegal[0].ID)

	forCRM, err := svc.ListPendingApprovals(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, forCRM, 1)
	assert.NotEqual(t, reg.ID, forCRM[0].ID)
}

func TestListQueriesValidateInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListByStatus(ctx, "archived")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = svc.ListByType(ctx, "lease")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestNilEventPublisherIsSafe(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	svc := NewDeviationService(store.NewMemoryStore(), nil, log)

	req, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
		Type:      deviation.TypeRegistration,
		CreatedBy: deviation.Identity{ID: "u1"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), req.ID, "a1", ""))
}
