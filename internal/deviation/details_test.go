package deviation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetailsDispatch(t *testing.T) {
	tests := []struct {
		typ  Type
		raw  string
		want Details
	}{
		{
			typ:  TypeRegistration,
			raw:  `{"bookingDate":"2026-01-15","proposedRegistrationDate":"2026-06-01"}`,
			want: RegistrationDetails{BookingDate: "2026-01-15", ProposedRegistrationDate: "2026-06-01"},
		},
		{
			typ:  TypeInterestWaiver,
			raw:  `{"overdueAmount":250000,"interestWaiverRequested":12000,"reasonForDelay":"loan disbursal delay"}`,
			want: InterestWaiverDetails{OverdueAmount: 250000, InterestWaiverRequested: 12000, ReasonForDelay: "loan disbursal delay"},
		},
		{
			typ:  TypeCancellation,
			raw:  `{"reasonForCancellation":"Job relocation","supportingDocuments":["letter.pdf"]}`,
			want: CancellationDetails{ReasonForCancellation: "Job relocation", SupportingDocuments: []string{"letter.pdf"}},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, err := DecodeDetails(tt.typ, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.typ, got.DeviationType())
		})
	}
}

func TestDecodeDetailsEmptyPayload(t *testing.T) {
	for _, typ := range Types() {
		got, err := DecodeDetails(typ, nil)
		require.NoError(t, err)
		assert.Equal(t, typ, got.DeviationType())
	}
}

func TestDecodeDetailsUnknownType(t *testing.T) {
	_, err := DecodeDetails(Type("lease"), json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestDecodeDetailsInvalidJSON(t *testing.T) {
	_, err := DecodeDetails(TypeCashback, json.RawMessage(`{"eligibleCashbackAmount":`))
	require.Error(t, err)
}
