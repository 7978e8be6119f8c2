package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"SignalPull/internal/chart"
	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
)

// ChartHandler serves projected chart frames, once over HTTP or continuously over a WebSocket.
type ChartHandler struct {
	logger   *logger.Logger
	deps     chart.SessionDeps
	upgrader websocket.Upgrader
}

func NewChartHandler(lgr *logger.Logger, deps chart.SessionDeps) *ChartHandler {
	if deps.Logger == nil {
		deps.Logger = lgr
	}
	return &ChartHandler{
		logger: lgr,
		deps:   deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: true,
		},
	}
}

func (h *ChartHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/chart", h.Frame)
	e.GET("/ws/chart", h.Stream)
}

func (h *ChartHandler) Frame(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	f, err := chart.NewSession(h.deps).Snapshot(c.Request().Context(), tf, float64(req.Width), float64(req.Height), req.Visible)
	if err != nil {
		h.logger.Error("Chart frame failed", logger.String("tf", string(tf)), logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, f)
}

// Stream upgrades to a WebSocket and runs one chart session until either side closes.
func (h *ChartHandler) Stream(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	lgr := h.logger.With(logger.String("remote", c.RealIP()), logger.String("tf", string(tf)))
	lgr.Info("Chart session opened")

	sess := chart.NewSession(h.deps)
	go h.readCommands(ctx, cancel, conn, sess, lgr)
	go keepAlive(ctx, conn)

	var wmu sync.Mutex
	emit := func(m chart.Message) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}

	if err := sess.Run(ctx, tf, float64(req.Width), float64(req.Height), emit); err != nil {
		lgr.Warn("Chart session ended", logger.Error(err))
		_ = emit(chart.Message{Type: chart.MessageError, Error: err.Error()})
		return nil
	}
	lgr.Info("Chart session closed")
	return nil
}

func (h *ChartHandler) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *chart.Session, lgr *logger.Logger) {
	defer cancel()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var cmd chart.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lgr.Warn("Chart client read failed", logger.Error(err))
			}
			return
		}
		if err := sess.Send(ctx, cmd); err != nil {
			return
		}
	}
}

func keepAlive(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			deadline := time.Now().Add(wsWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, []byte(strconv.FormatInt(deadline.Unix(), 10)), deadline); err != nil {
				return
			}
		}
	}
}
