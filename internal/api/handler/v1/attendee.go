package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticketgate/gate-api/internal/api/handler/v1/request"
	"github.com/ticketgate/gate-api/internal/api/handler/v1/response"
	"github.com/ticketgate/gate-api/internal/domain"
)

type RosterService interface {
	FindAttendee(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error)
	ListAttendees(ctx context.Context, eventID uint) ([]domain.Attendee, error)
	History(ctx context.Context, eventID uint, ticketCode string) ([]domain.CheckIn, error)
}

type SyncService interface {
	ImportRoster(ctx context.Context, eventID uint, attendees []domain.Attendee) ([]domain.Attendee, error)
	Sync(ctx context.Context, eventID uint) ([]domain.Attendee, error)
	UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	UpsertTicketType(ctx context.Context, ticketType domain.TicketType) (domain.TicketType, error)
}

type AttendeeHandler struct {
	roster RosterService
	sync   SyncService
}

func NewAttendeeHandler(roster RosterService, sync SyncService) *AttendeeHandler {
	return &AttendeeHandler{
		roster: roster,
		sync:   sync,
	}
}

// HandleListAttendees godoc
// @Summary      List the roster of an event
// @Tags         attendees
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {array}   domain.Attendee
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/attendees [get]
// @Security BearerAuth
func (h *AttendeeHandler) HandleListAttendees(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendees, err := h.roster.ListAttendees(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleListAttendees -> h.roster.ListAttendees", err)
		return
	}

	ctx.JSON(http.StatusOK, attendees)
}

// HandleGetAttendee godoc
// @Summary      Look up one ticket
// @Tags         attendees
// @Produce      json
// @Param        eventID     path      int     true  "Event ID"
// @Param        ticketCode  path      string  true  "Ticket code"
// @Success      200         {object}  domain.Attendee
// @Failure      400         {object}  response.Err
// @Failure      404         {object}  response.Err
// @Failure      500         {object}  response.Err
// @Router       /events/{eventID}/attendees/{ticketCode} [get]
// @Security BearerAuth
func (h *AttendeeHandler) HandleGetAttendee(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendee, err := h.roster.FindAttendee(ctx.Request.Context(), eventID, ctx.Param("ticketCode"))
	if err != nil {
		renderServiceErr(ctx, "HandleGetAttendee -> h.roster.FindAttendee", err)
		return
	}

	ctx.JSON(http.StatusOK, attendee)
}

// HandleGetHistory godoc
// @Summary      Scan history of a ticket
// @Description  Every audit row recorded for the ticket, oldest first.
// @Tags         attendees
// @Produce      json
// @Param        eventID     path      int     true  "Event ID"
// @Param        ticketCode  path      string  true  "Ticket code"
// @Success      200         {array}   domain.CheckIn
// @Failure      400         {object}  response.Err
// @Failure      500         {object}  response.Err
// @Router       /events/{eventID}/attendees/{ticketCode}/history [get]
// @Security BearerAuth
func (h *AttendeeHandler) HandleGetHistory(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	checkIns, err := h.roster.History(ctx.Request.Context(), eventID, ctx.Param("ticketCode"))
	if err != nil {
		renderServiceErr(ctx, "HandleGetHistory -> h.roster.History", err)
		return
	}

	ctx.JSON(http.StatusOK, checkIns)
}

// HandleImportRoster godoc
// @Summary      Import attendees
// @Description  Upserts attendees by ticket code. Check-ins already used by a known ticket are kept.
// @Tags         attendees
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                          true  "Event ID"
// @Param        request  body      request.ImportRosterRequest  true  "request body"
// @Success      200      {object}  response.ImportRosterResponse
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/attendees/import [post]
// @Security BearerAuth
func (h *AttendeeHandler) HandleImportRoster(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ImportRosterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stored, err := h.sync.ImportRoster(ctx.Request.Context(), eventID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "HandleImportRoster -> h.sync.ImportRoster", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ImportRosterResponse{
		Imported:  len(stored),
		Attendees: stored,
	})
}

// HandleSyncRoster godoc
// @Summary      Pull the roster from the ticket provider
// @Tags         attendees
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {object}  response.ImportRosterResponse
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      503      {object}  response.Err
// @Router       /events/{eventID}/attendees/sync [post]
// @Security BearerAuth
func (h *AttendeeHandler) HandleSyncRoster(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	stored, err := h.sync.Sync(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleSyncRoster -> h.sync.Sync", err)
		return
	}

	ctx.JSON(http.StatusOK, response.ImportRosterResponse{
		Imported:  len(stored),
		Attendees: stored,
	})
}

// HandleUpsertTicketType godoc
// @Summary      Create or replace a ticket type
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                        true  "Event ID"
// @Param        name     path      string                     true  "Ticket type name"
// @Param        request  body      request.TicketTypeRequest  true  "request body"
// @Success      200      {object}  domain.TicketType
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/ticket-types/{name} [put]
// @Security BearerAuth
func (h *AttendeeHandler) HandleUpsertTicketType(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.TicketTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stored, err := h.sync.UpsertTicketType(ctx.Request.Context(), req.ToDomain(eventID, ctx.Param("name")))
	if err != nil {
		renderServiceErr(ctx, "HandleUpsertTicketType -> h.sync.UpsertTicketType", err)
		return
	}

	ctx.JSON(http.StatusOK, stored)
}

// HandleUpsertEvent godoc
// @Summary      Create or replace an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                   true  "Event ID"
// @Param        request  body      request.EventRequest  true  "request body"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [put]
// @Security BearerAuth
func (h *AttendeeHandler) HandleUpsertEvent(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stored, err := h.sync.UpsertEvent(ctx.Request.Context(), req.ToDomain(eventID))
	if err != nil {
		renderServiceErr(ctx, "HandleUpsertEvent -> h.sync.UpsertEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, stored)
}
