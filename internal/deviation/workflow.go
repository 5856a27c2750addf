package deviation

import (
	"fmt"
	"time"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// ApplyApprove records an approval by approverID on the request's current
// seat and advances the chain.
//
// Rules:
//   - A terminal request (approved/rejected) cannot be acted on; the call
//     fails with a conflict error and the request is left untouched.
//   - When approverID is not the seat at CurrentLevel, the call is a no-op:
//     the engine trusts callers to offer only actionable items (worklists
//     come from AwaitingAction) and does not police acting order.
//   - Otherwise the current seat becomes approved with the given comments.
//     If every seat is now approved the request becomes approved and
//     CurrentLevel stays put; else CurrentLevel advances by one and the
//     request moves to in_review.
func (r *Request) ApplyApprove(approverID, comments string, now time.Time) error {
	if r.Status.Terminal() {
		return errors.Conflict(
			fmt.Sprintf("request %s is already %s", r.ID, r.Status))
	}

	cur := r.CurrentApprover()
	if cur == nil || cur.ID != approverID {
		return nil
	}

	cur.Status = ApproverApproved
	cur.Comments = comments
	ts := now
	cur.Timestamp = &ts

	if r.allApproved() {
		r.Status = StatusApproved
	} else {
		r.CurrentLevel++
		r.Status = StatusInReview
	}
	r.UpdatedAt = now
	return nil
}

// ApplyReject records a rejection by approverID. Rejection is terminal at
// any level: the request becomes rejected immediately and CurrentLevel is
// left unchanged. Comments are mandatory. The seat matching approverID
// anywhere in the chain is annotated; the overall rejection does not depend
// on a seat matching.
func (r *Request) ApplyReject(approverID, comments string, now time.Time) error {
	if comments == "" {
		return errors.InvalidInput("comments", "rejection comments are required")
	}
	if r.Status.Terminal() {
		return errors.Conflict(
			fmt.Sprintf("request %s is already %s", r.ID, r.Status))
	}

	for i := range r.Approvers {
		if r.Approvers[i].ID == approverID {
			r.Approvers[i].Status = ApproverRejected
			r.Approvers[i].Comments = comments
			ts := now
			r.Approvers[i].Timestamp = &ts
			break
		}
	}

	r.Status = StatusRejected
	r.UpdatedAt = now
	return nil
}

func (r *Request) allApproved() bool {
	for _, a := range r.Approvers {
		if a.Status != ApproverApproved {
			return false
		}
	}
	return true
}
