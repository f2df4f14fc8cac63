package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
)

// EventHandler serves the persisted event log and a live websocket stream fed
// by the in-process hub.
type EventHandler struct {
	Repo   repository.Repository
	Hub    *notify.Hub
	Logger *zap.Logger

	// OriginPatterns are passed to the websocket handshake; empty means same
	// origin only.
	OriginPatterns []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

func (h *EventHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/events", h.list)
	r.GET("/api/v1/events/stream", h.stream)
}

// @Summary List committed events
// @Tags events
// @Param event query string false "event name"
// @Param ref query string false "entity reference"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/events [get]
func (h *EventHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListEventRecordsParams{
		Limit:  limit,
		Offset: offset,
		Name:   strQueryPtr(c, "event"),
		Ref:    strQueryPtr(c, "ref"),
	}
	if v := strQueryPtr(c, "since"); v != nil {
		ts, err := time.Parse(time.RFC3339, *v)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be RFC3339", nil)
			return
		}
		params.Since = &ts
	}
	items, err := h.Repo.ListEventRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]eventRecordView, 0, len(items))
	for i := range items {
		out = append(out, toEventRecordView(&items[i]))
	}
	Ok(c, out, map[string]any{"limit": limit, "offset": offset})
}

// @Summary Live event stream (websocket)
// @Description Each message is one JSON event. Filter with a comma separated event list.
// @Tags events
// @Param event query string false "event names, comma separated"
// @Router /api/v1/events/stream [get]
func (h *EventHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "event stream unavailable", nil)
		return
	}
	filter := map[string]struct{}{}
	for _, name := range strings.Split(c.Query("event"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			filter[name] = struct{}{}
		}
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	events, cancel := h.Hub.Subscribe()
	defer cancel()

	// The stream is write-only; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := conn.CloseRead(c.Request.Context())

	writeTimeout := h.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	pingInterval := h.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if len(filter) > 0 {
				if _, want := filter[ev.Name]; !want {
					continue
				}
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Debug("event stream write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
