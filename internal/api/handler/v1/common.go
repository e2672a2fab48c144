package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ticketgate/gate-api/internal/api/handler/v1/response"
	"github.com/ticketgate/gate-api/internal/service"
)

// HandleHealthcheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseEventID(ctx *gin.Context) (uint, *response.Err) {
	raw := ctx.Param("eventID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid event id %q", raw))
	}

	return uint(id), nil
}

// renderServiceErr maps the service sentinels shared by the roster, sync and
// occupancy handlers. op names the failed call for the server log.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrEventNotFound):
		response.RenderErr(ctx, response.ErrNotFound("event", "id", ctx.Param("eventID")))
	case errors.Is(err, service.ErrAttendeeNotFound):
		response.RenderErr(ctx, response.ErrNotFound("attendee", "ticket_code", ctx.Param("ticketCode")))
	case errors.Is(err, service.ErrEventArchived):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrNoProvider):
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
	}
}
