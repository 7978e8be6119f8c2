package api

import (
	"context"
	"errors"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
	xutil "SignalPull/pkg/util"

	"github.com/labstack/echo/v4"
)

type SignalReader interface {
	List(ctx context.Context, from, to time.Time, limit int) ([]models.SignalView, error)
	Get(ctx context.Context, id string) (*models.Signal, error)
}

type RepriceRunner interface {
	Run(ctx context.Context) (*models.RepriceSummary, error)
}

type PerformanceLister interface {
	List(ctx context.Context, from, to time.Time, limit int, mode string) ([]models.SignalPerformance, error)
}

// StatsReader serves per-day sentiment counts from the archive.
type StatsReader interface {
	DailyStats(ctx context.Context, from, to time.Time) ([]models.SentimentStat, error)
}

// SignalsHandler serves stored signals and the jobs that act on them.
type SignalsHandler struct {
	logger   *logger.Logger
	signals  SignalReader
	jobs     drepo.JobQueue
	repricer RepriceRunner
	perf     PerformanceLister
	stats    StatsReader
	now      func() time.Time
}

// NewSignalsHandler wires the signal routes. stats may be nil when no archive is configured.
func NewSignalsHandler(lgr *logger.Logger, signals SignalReader, jobs drepo.JobQueue, repricer RepriceRunner, perf PerformanceLister, stats StatsReader) *SignalsHandler {
	return &SignalsHandler{
		logger:   lgr,
		signals:  signals,
		jobs:     jobs,
		repricer: repricer,
		perf:     perf,
		stats:    stats,
		now:      time.Now,
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	g.GET("", h.List)
	g.GET("/performance", h.Performance)
	g.POST("/reprice", h.Reprice)
	g.POST("/:id/verify", h.Verify)
	if h.stats != nil {
		g.GET("/stats", h.Stats)
	}
}

func (h *SignalsHandler) window(fromS, toS string) (time.Time, time.Time) {
	to := xutil.ParseTimeDefault(toS, h.now())
	from := xutil.ParseTimeDefault(fromS, time.Unix(0, 0))
	return from, to
}

func (h *SignalsHandler) List(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := h.window(req.From, req.To)
	if from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must not be after to"))
	}

	list, err := h.signals.List(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("List signals failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, list)
}

// Verify queues a re-classification of one signal.
func (h *SignalsHandler) Verify(c echo.Context) error {
	req := &models.VerifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if _, err := h.signals.Get(ctx, req.ID); err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("signal not found"))
		}
		h.logger.Error("Load signal failed", logger.String("id", req.ID), logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if err := h.jobs.PublishMessage(ctx, usecase.ReverifyMessageType, usecase.ReverifyPayload{SignalID: req.ID}); err != nil {
		h.logger.Error("Enqueue reverify failed", logger.String("id", req.ID), logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.AcceptedResponse(c, map[string]string{"id": req.ID, "job": usecase.ReverifyMessageType})
}

func (h *SignalsHandler) Reprice(c echo.Context) error {
	sum, err := h.repricer.Run(c.Request().Context())
	if err != nil {
		h.logger.Error("Reprice failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *SignalsHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := h.window(c.QueryParam("from"), c.QueryParam("to"))

	out, err := h.perf.List(c.Request().Context(), from, to, req.Limit, req.Mode)
	if err != nil {
		h.logger.Error("Performance failed", logger.String("mode", req.Mode), logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

// Stats defaults to the last 30 days.
func (h *SignalsHandler) Stats(c echo.Context) error {
	now := h.now()
	to := xutil.ParseTimeDefault(c.QueryParam("to"), now)
	from := xutil.ParseTimeDefault(c.QueryParam("from"), to.AddDate(0, 0, -30))

	stats, err := h.stats.DailyStats(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("Signal stats failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}
