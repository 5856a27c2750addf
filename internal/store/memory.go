package store

import (
	"context"
	"sync"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// MemoryStore is an in-memory Store. A single RWMutex serializes mutations,
// and every request crossing the boundary is deep-copied, so readers always
// see a consistent snapshot and a failed Mutate leaves no trace.
type MemoryStore struct {
	mu       sync.RWMutex
	requests []*deviation.Request // head = most recent
	byID     map[string]*deviation.Request
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*deviation.Request)}
}

// Add inserts req at the head of the collection.
func (s *MemoryStore) Add(_ context.Context, req *deviation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[req.ID]; exists {
		return errors.Conflict("request id " + req.ID + " already exists")
	}

	cp := req.Clone()
	s.requests = append([]*deviation.Request{cp}, s.requests...)
	s.byID[cp.ID] = cp
	return nil
}

// Get returns a copy of the request with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*deviation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.byID[id]
	if !ok {
		return nil, errors.NotFound("deviation request", id)
	}
	return req.Clone(), nil
}

// List returns all requests, most-recent-first.
func (s *MemoryStore) List(_ context.Context) ([]*deviation.Request, error) {
	return s.filter(func(*deviation.Request) bool { return true }), nil
}

// ListByStatus returns all requests with exactly the given status.
func (s *MemoryStore) ListByStatus(_ context.Context, status deviation.Status) ([]*deviation.Request, error) {
	return s.filter(func(r *deviation.Request) bool { return r.Status == status }), nil
}

// ListByType returns all requests with exactly the given type.
func (s *MemoryStore) ListByType(_ context.Context, t deviation.Type) ([]*deviation.Request, error) {
	return s.filter(func(r *deviation.Request) bool { return r.Type == t }), nil
}

// ListPendingApprovals returns requests awaiting their current approver.
func (s *MemoryStore) ListPendingApprovals(_ context.Context) ([]*deviation.Request, error) {
	return s.filter((*deviation.Request).AwaitingAction), nil
}

// Mutate applies fn to a working copy of the request and swaps it in only
// when fn succeeds.
func (s *MemoryStore) Mutate(_ context.Context, id string, fn func(*deviation.Request) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byID[id]
	if !ok {
		return errors.NotFound("deviation request", id)
	}

	work := req.Clone()
	if err := fn(work); err != nil {
		return err
	}

	for i, r := range s.requests {
		if r.ID == id {
			s.requests[i] = work
			break
		}
	}
	s.byID[id] = work
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) filter(keep func(*deviation.Request) bool) []*deviation.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*deviation.Request, 0, len(s.requests))
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
