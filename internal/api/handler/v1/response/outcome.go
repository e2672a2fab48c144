package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticketgate/gate-api/internal/domain"
)

var outcomeStatusCodes = map[domain.OutcomeStatus]int{
	domain.StatusSuccess:         http.StatusOK,
	domain.StatusCheckedOut:      http.StatusOK,
	domain.StatusValidationError: http.StatusBadRequest,
	domain.StatusInvalid:         http.StatusNotFound,
	domain.StatusTicketInUse:     http.StatusConflict,
	domain.StatusPaymentInvalid:  http.StatusUnprocessableEntity,
	domain.StatusDuplicate:       http.StatusUnprocessableEntity,
	domain.StatusLimitExceeded:   http.StatusUnprocessableEntity,
	domain.StatusNotCheckedIn:    http.StatusUnprocessableEntity,
	domain.StatusArchivedEvent:   http.StatusForbidden,
	domain.StatusScansDisabled:   http.StatusForbidden,
	domain.StatusError:           http.StatusInternalServerError,
}

// OutcomeStatusCode maps an admission outcome to the HTTP status it is
// served with. Unknown statuses are treated as server errors.
func OutcomeStatusCode(status domain.OutcomeStatus) int {
	code, ok := outcomeStatusCodes[status]
	if !ok {
		return http.StatusInternalServerError
	}
	return code
}

func RenderOutcome(ctx *gin.Context, outcome domain.Outcome) {
	ctx.JSON(OutcomeStatusCode(outcome.Status), outcome)
}

type BulkScanResponse struct {
	Admitted int                 `json:"admitted"`
	Rejected int                 `json:"rejected"`
	Results  []domain.ItemResult `json:"results"`
}

func NewBulkScanResponse(results []domain.ItemResult) BulkScanResponse {
	resp := BulkScanResponse{
		Results: results,
	}
	for _, result := range results {
		if result.Outcome.Admitted() {
			resp.Admitted++
		} else {
			resp.Rejected++
		}
	}
	return resp
}

type ImportRosterResponse struct {
	Imported  int               `json:"imported"`
	Attendees []domain.Attendee `json:"attendees"`
}
