// Package deviation holds the deviation-request domain model and the
// approval state machine. Everything here is storage-independent: the store
// layer persists these types, the service layer drives the transitions.
package deviation

import "time"

// Type is the kind of exception being requested. The set is closed; the
// approver chain for a request is derived from its type at creation.
type Type string

const (
	TypeRegistration   Type = "registration"
	TypePossession     Type = "possession"
	TypeInterestWaiver Type = "interest_waiver"
	TypeCashback       Type = "cashback"
	TypePreEMI         Type = "pre_emi"
	TypeCancellation   Type = "cancellation"
)

// Types lists all deviation types in display order.
func Types() []Type {
	return []Type{
		TypeRegistration,
		TypePossession,
		TypeInterestWaiver,
		TypeCashback,
		TypePreEMI,
		TypeCancellation,
	}
}

// Valid reports whether t is a known deviation type.
func (t Type) Valid() bool {
	switch t {
	case TypeRegistration, TypePossession, TypeInterestWaiver,
		TypeCashback, TypePreEMI, TypeCancellation:
		return true
	}
	return false
}

// Status is the overall request status. pending and in_review are both
// "awaiting action"; the distinction is purely for display (pending means
// level 1 has not acted yet).
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known request status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ApproverStatus is the status of a single seat in the approval chain.
// It starts pending and becomes approved or rejected exactly once.
type ApproverStatus string

const (
	ApproverPending  ApproverStatus = "pending"
	ApproverApproved ApproverStatus = "approved"
	ApproverRejected ApproverStatus = "rejected"
)

// Identity is a snapshot of who performed or requested an action.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Approver is one seat in a request's approval chain. Seat order within a
// request is fixed at creation and encodes the required approval sequence.
type Approver struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Role      string         `json:"role"`
	Status    ApproverStatus `json:"status"`
	Comments  string         `json:"comments,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

// Request is one deviation-approval case.
type Request struct {
	ID           string     `json:"id"`
	Type         Type       `json:"type"`
	Status       Status     `json:"status"`
	CustomerName string     `json:"customerName"`
	UnitNumber   string     `json:"unitNumber"`
	Description  string     `json:"description,omitempty"`
	CreatedBy    Identity   `json:"createdBy"`
	Approvers    []Approver `json:"approvers"`
	// CurrentLevel is the 1-based index into Approvers of the seat whose
	// decision is pending. It never decreases.
	CurrentLevel int       `json:"currentLevel"`
	Details      Details   `json:"details,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the request. Stores hand out and accept
// clones so no caller can alias store-owned state.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Approvers = make([]Approver, len(r.Approvers))
	for i, a := range r.Approvers {
		cp.Approvers[i] = a
		if a.Timestamp != nil {
			ts := *a.Timestamp
			cp.Approvers[i].Timestamp = &ts
		}
	}
	if r.Details != nil {
		cp.Details = r.Details.clone()
	}
	return &cp
}

// CurrentApprover returns the seat at CurrentLevel, or nil when the level
// is out of range.
func (r *Request) CurrentApprover() *Approver {
	if r.CurrentLevel < 1 || r.CurrentLevel > len(r.Approvers) {
		return nil
	}
	return &r.Approvers[r.CurrentLevel-1]
}

// AwaitingAction reports whether the request belongs on an approvals
// worklist: overall status pending or in_review AND the current seat has
// not acted yet.
func (r *Request) AwaitingAction() bool {
	if r.Status != StatusPending && r.Status != StatusInReview {
		return false
	}
	cur := r.CurrentApprover()
	return cur != nil && cur.Status == ApproverPending
}
