package deviation

import (
	"encoding/json"
	"fmt"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
)

// Details is the type-specific payload of a request. One variant exists per
// deviation type and carries only the fields relevant to it. The workflow
// engine never inspects details; they are carried for display.
//
// Dates are YYYY-MM-DD strings, amounts are minor currency units.
type Details interface {
	// DeviationType returns the deviation type this payload belongs to.
	DeviationType() Type

	clone() Details
}

// RegistrationDetails — registration date change.
type RegistrationDetails struct {
	BookingDate              string `json:"bookingDate,omitempty"`
	OriginalRegistrationDate string `json:"originalRegistrationDate,omitempty"`
	ProposedRegistrationDate string `json:"proposedRegistrationDate,omitempty"`
}

func (RegistrationDetails) DeviationType() Type { return TypeRegistration }
func (d RegistrationDetails) clone() Details    { return d }

// PossessionDetails — possession date change.
type PossessionDetails struct {
	OriginalPossessionDate  string `json:"originalPossessionDate,omitempty"`
	RequestedPossessionDate string `json:"requestedPossessionDate,omitempty"`
	PaymentDuesStatus       string `json:"paymentDuesStatus,omitempty"`
}

func (PossessionDetails) DeviationType() Type { return TypePossession }
func (d PossessionDetails) clone() Details    { return d }

// InterestWaiverDetails — waiver of interest charged on overdue payments.
type InterestWaiverDetails struct {
	OverdueAmount           int64  `json:"overdueAmount,omitempty"`
	InterestCharged         int64  `json:"interestCharged,omitempty"`
	InterestWaiverRequested int64  `json:"interestWaiverRequested,omitempty"`
	ReasonForDelay          string `json:"reasonForDelay,omitempty"`
	PreviousWaiverHistory   string `json:"previousWaiverHistory,omitempty"`
}

func (InterestWaiverDetails) DeviationType() Type { return TypeInterestWaiver }
func (d InterestWaiverDetails) clone() Details    { return d }

// CashbackDetails — cashback payout request.
type CashbackDetails struct {
	EligibleCashbackAmount  int64  `json:"eligibleCashbackAmount,omitempty"`
	RequestedCashbackAmount int64  `json:"requestedCashbackAmount,omitempty"`
	ProposedDate            string `json:"proposedDate,omitempty"`
}

func (CashbackDetails) DeviationType() Type { return TypeCashback }
func (d CashbackDetails) clone() Details    { return d }

// PreEMIDetails — pre-EMI / rental support request.
type PreEMIDetails struct {
	LoanDisbursedDate string `json:"loanDisbursedDate,omitempty"`
	EMIStartDate      string `json:"emiStartDate,omitempty"`
	PaymentHistory    string `json:"paymentHistory,omitempty"`
	IssueInRepayment  string `json:"issueInRepayment,omitempty"`
	RequestedSupport  string `json:"requestedSupport,omitempty"`
}

func (PreEMIDetails) DeviationType() Type { return TypePreEMI }
func (d PreEMIDetails) clone() Details    { return d }

// CancellationDetails — booking cancellation and refund request.
type CancellationDetails struct {
	ReasonForCancellation   string   `json:"reasonForCancellation,omitempty"`
	RefundAmountAsPerPolicy int64    `json:"refundAmountAsPerPolicy,omitempty"`
	RefundAmountRequested   int64    `json:"refundAmountRequested,omitempty"`
	SupportingDocuments     []string `json:"supportingDocuments,omitempty"`
}

func (CancellationDetails) DeviationType() Type { return TypeCancellation }

func (d CancellationDetails) clone() Details {
	cp := d
	cp.SupportingDocuments = append([]string(nil), d.SupportingDocuments...)
	return cp
}

// DecodeDetails unmarshals a raw JSON payload into the Details variant for
// the given type. Empty raw yields the zero-value variant, so callers may
// omit the payload entirely (completeness validation is a form concern).
func DecodeDetails(t Type, raw json.RawMessage) (Details, error) {
	var (
		d   Details
		err error
	)
	switch t {
	case TypeRegistration:
		d, err = decodeInto[RegistrationDetails](raw)
	case TypePossession:
		d, err = decodeInto[PossessionDetails](raw)
	case TypeInterestWaiver:
		d, err = decodeInto[InterestWaiverDetails](raw)
	case TypeCashback:
		d, err = decodeInto[CashbackDetails](raw)
	case TypePreEMI:
		d, err = decodeInto[PreEMIDetails](raw)
	case TypeCancellation:
		d, err = decodeInto[CancellationDetails](raw)
	default:
		return nil, errors.InvalidInput("type", fmt.Sprintf("unknown deviation type %q", t))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("invalid %s details", t))
	}
	return d, nil
}

func decodeInto[D Details](raw json.RawMessage) (Details, error) {
	var d D
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}
