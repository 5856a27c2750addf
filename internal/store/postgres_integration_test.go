package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	apperrors "github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// newTestPostgresStore connects to the database named by TEST_DATABASE_URL
// and skips the test when it is unset.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration tests")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM deviation_approvers`)
		_, _ = s.pool.Exec(ctx, `DELETE FROM deviation_requests`)
		s.Close()
	})
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	approvers, err := deviation.ApproverChain(deviation.TypeCancellation)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	req := &deviation.Request{
		ID:           "REQ-pg-1",
		Type:         deviation.TypeCancellation,
		Status:       deviation.StatusPending,
		CustomerName: "Sneha Rao",
		UnitNumber:   "B-903",
		Description:  "Cancellation due to relocation",
		CreatedBy:    deviation.Identity{ID: "u1", Name: "Rahul Mehta", Role: "CRM Manager"},
		Approvers:    approvers,
		CurrentLevel: 1,
		Details: deviation.CancellationDetails{
			ReasonForCancellation: "Job relocation",
			RefundAmountRequested: 1_500_000,
			SupportingDocuments:   []string{"letter.pdf"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Add(ctx, req))

	got, err := s.Get(ctx, "REQ-pg-1")
	require.NoError(t, err)
	assert.Equal(t, req.Type, got.Type)
	assert.Equal(t, req.CustomerName, got.CustomerName)
	assert.Equal(t, req.CreatedBy, got.CreatedBy)
	assert.Equal(t, req.Details, got.Details)
	require.Len(t, got.Approvers, 4)
	assert.Equal(t, "a12", got.Approvers[1].ID)
}

func TestPostgresStoreMutateAndQueries(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	seedRequest(t, s, "REQ-pg-1", deviation.TypeRegistration)
	seedRequest(t, s, "REQ-pg-2", deviation.TypeRegistration)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.Mutate(ctx, "REQ-pg-1", func(r *deviation.Request) error {
		return r.ApplyApprove("a1", "ok", now)
	}))

	got, err := s.Get(ctx, "REQ-pg-1")
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusInReview, got.Status)
	assert.Equal(t, 2, got.CurrentLevel)
	assert.Equal(t, deviation.ApproverApproved, got.Approvers[0].Status)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "REQ-pg-2", all[0].ID)

	inReview, err := s.ListByStatus(ctx, deviation.StatusInReview)
	require.NoError(t, err)
	require.Len(t, inReview, 1)

	pending, err := s.ListPendingApprovals(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// Reject the other request; it must drop out of the worklist.
	require.NoError(t, s.Mutate(ctx, "REQ-pg-2", func(r *deviation.Request) error {
		return r.ApplyReject("a1", "Not eligible", now)
	}))

	pending, err = s.ListPendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "REQ-pg-1", pending[0].ID)
}

func TestPostgresStoreMutateRollsBackOnError(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	seedRequest(t, s, "REQ-pg-1", deviation.TypeCashback)

	err := s.Mutate(ctx, "REQ-pg-1", func(r *deviation.Request) error {
		return r.ApplyReject("a1", "", time.Now().UTC())
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	got, err := s.Get(ctx, "REQ-pg-1")
	require.NoError(t, err)
	assert.Equal(t, deviation.StatusPending, got.Status)
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	s := newTestPostgresStore(t)

	_, err := s.Get(context.Background(), "REQ-missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}
