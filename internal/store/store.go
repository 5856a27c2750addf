// Package store persists deviation requests. The Store interface is the
// single writer of request state; the in-memory implementation is the
// reference, the Postgres implementation backs multi-instance deployments.
package store

import (
	"context"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
)

// Store owns the collection of deviation requests.
//
// Mutations (Add, Mutate) are applied atomically per request: a failed
// operation leaves the record exactly as it was. Reads observe a consistent
// snapshot and never alias store-owned state.
type Store interface {
	// Add inserts a new request at the head of the collection, so List
	// returns most-recent-first.
	Add(ctx context.Context, req *deviation.Request) error

	// Get returns the request with the given id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*deviation.Request, error)

	// List returns all requests, most-recent-first.
	List(ctx context.Context) ([]*deviation.Request, error)

	// ListByStatus returns all requests with exactly the given status.
	ListByStatus(ctx context.Context, status deviation.Status) ([]*deviation.Request, error)

	// ListByType returns all requests with exactly the given type.
	ListByType(ctx context.Context, t deviation.Type) ([]*deviation.Request, error)

	// ListPendingApprovals returns the authoritative "needs action" set:
	// requests whose status is pending or in_review and whose current seat
	// has not acted yet.
	ListPendingApprovals(ctx context.Context) ([]*deviation.Request, error)

	// Mutate loads the request with the given id, applies fn to it and
	// commits the result, all as one serialized step per request id. When
	// fn returns an error nothing is committed and the error is returned
	// unchanged. Returns a NOT_FOUND error when the id does not exist.
	Mutate(ctx context.Context, id string, fn func(*deviation.Request) error) error

	// Close releases any resources held by the store.
	Close()
}
