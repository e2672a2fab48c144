package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ticketgate/gate-api/internal/domain"
)

func TestOutcomeStatusCode(t *testing.T) {
	tests := []struct {
		status domain.OutcomeStatus
		want   int
	}{
		{domain.StatusSuccess, http.StatusOK},
		{domain.StatusCheckedOut, http.StatusOK},
		{domain.StatusValidationError, http.StatusBadRequest},
		{domain.StatusInvalid, http.StatusNotFound},
		{domain.StatusTicketInUse, http.StatusConflict},
		{domain.StatusDuplicate, http.StatusUnprocessableEntity},
		{domain.StatusLimitExceeded, http.StatusUnprocessableEntity},
		{domain.StatusPaymentInvalid, http.StatusUnprocessableEntity},
		{domain.StatusNotCheckedIn, http.StatusUnprocessableEntity},
		{domain.StatusArchivedEvent, http.StatusForbidden},
		{domain.StatusScansDisabled, http.StatusForbidden},
		{domain.StatusError, http.StatusInternalServerError},
		{domain.OutcomeStatus("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeStatusCode(tt.status))
		})
	}
}

func TestNewBulkScanResponse(t *testing.T) {
	resp := NewBulkScanResponse([]domain.ItemResult{
		{Index: 0, Outcome: domain.Outcome{Status: domain.StatusSuccess}},
		{Index: 1, Outcome: domain.Outcome{Status: domain.StatusDuplicate}},
		{Index: 2, Outcome: domain.Outcome{Status: domain.StatusCheckedOut}},
	})

	assert.Equal(t, 2, resp.Admitted)
	assert.Equal(t, 1, resp.Rejected)
	assert.Len(t, resp.Results, 3)
}
