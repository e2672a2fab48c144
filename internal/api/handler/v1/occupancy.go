package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ticketgate/gate-api/internal/api/handler/v1/response"
	"github.com/ticketgate/gate-api/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type OccupancyService interface {
	Snapshot(ctx context.Context, eventID uint) (domain.OccupancySnapshot, error)
	Subscribe(eventID uint) (<-chan domain.OccupancySnapshot, func())
}

type OccupancyHandler struct {
	svc      OccupancyService
	upgrader websocket.Upgrader
}

// NewOccupancyHandler accepts websocket upgrades from allowedOrigins only.
// An empty list accepts any origin.
func NewOccupancyHandler(svc OccupancyService, allowedOrigins []string) *OccupancyHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}

	return &OccupancyHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				_, ok := origins[origin]
				if !ok {
					_, ok = origins["*"]
				}
				return ok
			},
		},
	}
}

// HandleGetOccupancy godoc
// @Summary      Current occupancy of an event
// @Tags         occupancy
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {object}  domain.OccupancySnapshot
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/occupancy [get]
// @Security BearerAuth
func (h *OccupancyHandler) HandleGetOccupancy(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	snapshot, err := h.svc.Snapshot(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetOccupancy -> h.svc.Snapshot", err)
		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}

// HandleLiveOccupancy godoc
// @Summary      Live occupancy feed
// @Description  Upgrades to a websocket that receives the current snapshot, then every new one as scans are committed.
// @Tags         occupancy
// @Param        eventID       path   int     true   "Event ID"
// @Param        access_token  query  string  false  "Bearer token for clients that cannot set headers"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {object}  response.Err
// @Router       /events/{eventID}/occupancy/live [get]
// @Security BearerAuth
func (h *OccupancyHandler) HandleLiveOccupancy(ctx *gin.Context) {
	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	// Subscribe before reading the snapshot so that no update is missed in
	// between.
	updates, cancel := h.svc.Subscribe(eventID)
	defer cancel()

	snapshot, err := h.svc.Snapshot(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleLiveOccupancy -> h.svc.Snapshot", err)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		zap.L().Debug("websocket upgrade failed", zap.String("request_id", requestid.Get(ctx)), zap.Error(err))
		return
	}

	l := zap.L().With(zap.String("request_id", requestid.Get(ctx)), zap.Uint("event_id", eventID))
	l.Debug("occupancy subscriber connected")

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, snapshot, updates, closed, l)

	l.Debug("occupancy subscriber disconnected")
}

// writePump owns every write to conn. It returns when the client goes away,
// a write fails or the feed is closed.
func writePump(
	conn *websocket.Conn,
	first domain.OccupancySnapshot,
	updates <-chan domain.OccupancySnapshot,
	closed <-chan struct{},
	l *zap.Logger,
) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if err := writeSnapshot(conn, first); err != nil {
		return
	}

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := writeSnapshot(conn, snapshot); err != nil {
				l.Debug("occupancy write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump discards client messages and keeps the read deadline moving with
// pongs. It closes closed when the connection ends.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot domain.OccupancySnapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snapshot)
}
