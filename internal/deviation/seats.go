package deviation

import (
	"fmt"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// Seat is one entry in a seating template: the identity that must sign off
// at that level. Seats are bound to a role/person, not assigned dynamically.
type Seat struct {
	ID   string
	Name string
	Role string
}

// seatTemplates maps each deviation type to its required approval sequence.
// Every chain opens with the CRM Manager; the remaining seats escalate
// according to the type. The table is static configuration so the state
// machine itself carries no per-type approver knowledge.
var seatTemplates = map[Type][]Seat{
	TypeRegistration: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a2", Name: "Neha Sharma", Role: "Legal Head"},
		{ID: "a3", Name: "Vikram Singh", Role: "Director"},
	},
	TypePossession: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a4", Name: "Amit Patel", Role: "Projects Head"},
		{ID: "a5", Name: "Priya Gupta", Role: "Finance"},
	},
	TypeInterestWaiver: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a6", Name: "Deepak Joshi", Role: "Finance Head"},
		{ID: "a7", Name: "Vijay Kumar", Role: "COO"},
	},
	TypeCashback: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a8", Name: "Ankur Verma", Role: "Sales Head"},
		{ID: "a9", Name: "Meera Iyer", Role: "Finance"},
	},
	TypePreEMI: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a10", Name: "Sanjay Kapoor", Role: "Finance"},
		{ID: "a11", Name: "Ritika Singhania", Role: "Legal"},
	},
	TypeCancellation: {
		{ID: "a1", Name: "Rahul Mehta", Role: "CRM Manager"},
		{ID: "a12", Name: "Anil Kumar", Role: "CRM Head"},
		{ID: "a13", Name: "Gautam Reddy", Role: "Finance"},
		{ID: "a14", Name: "Kavita Singh", Role: "CEO"},
	},
}

// ApproverChain returns the fresh ordered approver sequence for a deviation
// type, every seat starting pending.
func ApproverChain(t Type) ([]Approver, error) {
	seats, ok := seatTemplates[t]
	if !ok {
		return nil, errors.InvalidInput("type", fmt.Sprintf("unknown deviation type %q", t))
	}
	chain := make([]Approver, len(seats))
	for i, s := range seats {
		chain[i] = Approver{
			ID:     s.ID,
			Name:   s.Name,
			Role:   s.Role,
			Status: ApproverPending,
		}
	}
	return chain, nil
}
