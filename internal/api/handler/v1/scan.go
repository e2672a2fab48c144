package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticketgate/gate-api/internal/api/handler/v1/request"
	"github.com/ticketgate/gate-api/internal/api/handler/v1/response"
	"github.com/ticketgate/gate-api/internal/api/middleware"
	"github.com/ticketgate/gate-api/internal/domain"
)

type AdmissionService interface {
	Admit(ctx context.Context, req domain.ScanRequest) domain.Outcome
	AdmitAdvanced(ctx context.Context, req domain.ScanRequest) domain.Outcome
	BulkAdmit(ctx context.Context, eventID uint, items []domain.BulkItem) []domain.ItemResult
	ResetCounters(ctx context.Context, eventID uint, ticketCode string) domain.Outcome
}

type ScanHandler struct {
	svc AdmissionService
}

func NewScanHandler(svc AdmissionService) *ScanHandler {
	return &ScanHandler{
		svc: svc,
	}
}

// HandleScan godoc
// @Summary      Scan a ticket
// @Description  Admits or checks out one ticket. The body is always an outcome; the HTTP status follows outcome.status.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                  true  "Event ID"
// @Param        request  body      request.ScanRequest  true  "request body"
// @Success      200      {object}  domain.Outcome
// @Failure      400      {object}  domain.Outcome
// @Failure      403      {object}  domain.Outcome
// @Failure      404      {object}  domain.Outcome
// @Failure      409      {object}  domain.Outcome
// @Failure      422      {object}  domain.Outcome
// @Failure      500      {object}  domain.Outcome
// @Router       /events/{eventID}/scans [post]
// @Security BearerAuth
func (h *ScanHandler) HandleScan(ctx *gin.Context) {
	h.handleScan(ctx, h.svc.Admit)
}

// HandleAdvancedScan godoc
// @Summary      Scan a ticket with ticket-type rules
// @Description  Same as a plain scan, plus the ticket type's allowance and daily, weekly and monthly limits.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                  true  "Event ID"
// @Param        request  body      request.ScanRequest  true  "request body"
// @Success      200      {object}  domain.Outcome
// @Failure      400      {object}  domain.Outcome
// @Failure      403      {object}  domain.Outcome
// @Failure      404      {object}  domain.Outcome
// @Failure      409      {object}  domain.Outcome
// @Failure      422      {object}  domain.Outcome
// @Failure      500      {object}  domain.Outcome
// @Router       /events/{eventID}/scans/advanced [post]
// @Security BearerAuth
func (h *ScanHandler) HandleAdvancedScan(ctx *gin.Context) {
	h.handleScan(ctx, h.svc.AdmitAdvanced)
}

func (h *ScanHandler) handleScan(ctx *gin.Context, admit func(context.Context, domain.ScanRequest) domain.Outcome) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderOutcome(ctx, validationFailed(respErr))
		return
	}

	var req request.ScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderOutcome(ctx, validationFailed(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderOutcome(ctx, validationFailed(err))
		return
	}

	outcome := admit(ctx.Request.Context(), req.ToDomain(eventID, middleware.Operator(ctx)))
	response.RenderOutcome(ctx, outcome)
}

// HandleBulkScan godoc
// @Summary      Scan a batch of tickets
// @Description  Runs every item as an independent scan, in order. Items are not atomic as a group.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                      true  "Event ID"
// @Param        request  body      request.BulkScanRequest  true  "request body"
// @Success      200      {object}  response.BulkScanResponse
// @Failure      400      {object}  response.Err
// @Router       /events/{eventID}/scans/bulk [post]
// @Security BearerAuth
func (h *ScanHandler) HandleBulkScan(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.BulkScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	results := h.svc.BulkAdmit(ctx.Request.Context(), eventID, req.ToDomain(middleware.Operator(ctx)))
	ctx.JSON(http.StatusOK, response.NewBulkScanResponse(results))
}

// HandleResetCounters godoc
// @Summary      Reset a ticket's counters
// @Description  Zeroes the daily, weekly and monthly scan counters. The check-in allowance is left as is.
// @Tags         scans
// @Produce      json
// @Param        eventID     path      int     true  "Event ID"
// @Param        ticketCode  path      string  true  "Ticket code"
// @Success      200         {object}  domain.Outcome
// @Failure      400         {object}  domain.Outcome
// @Failure      404         {object}  domain.Outcome
// @Failure      409         {object}  domain.Outcome
// @Failure      500         {object}  domain.Outcome
// @Router       /events/{eventID}/attendees/{ticketCode}/reset-counters [post]
// @Security BearerAuth
func (h *ScanHandler) HandleResetCounters(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderOutcome(ctx, validationFailed(respErr))
		return
	}

	outcome := h.svc.ResetCounters(ctx.Request.Context(), eventID, ctx.Param("ticketCode"))
	response.RenderOutcome(ctx, outcome)
}

func validationFailed(err error) domain.Outcome {
	return domain.Outcome{
		Status:  domain.StatusValidationError,
		Message: err.Error(),
	}
}
