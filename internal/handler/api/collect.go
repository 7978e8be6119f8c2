package api

import (
	"context"
	"errors"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CollectRunner runs one collection pass.
type CollectRunner interface {
	Run(ctx context.Context, params models.RunParams) (*models.RunSummary, error)
}

type CollectHandler struct {
	logger  *logger.Logger
	runner  CollectRunner
	limiter *ratelimit.Limiter
}

// NewCollectHandler builds the collect endpoint. A nil limiter disables rate limiting.
func NewCollectHandler(lgr *logger.Logger, runner CollectRunner, limiter *ratelimit.Limiter) *CollectHandler {
	return &CollectHandler{logger: lgr, runner: runner, limiter: limiter}
}

func (h *CollectHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	e.POST("/api/collect", h.Collect, mw...)
}

func (h *CollectHandler) Collect(c echo.Context) error {
	req := &models.CollectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sum, err := h.runner.Run(c.Request().Context(), models.RunParams{
		Since:          req.Since,
		Until:          req.Until,
		LimitPerAuthor: req.LimitPerAuthor,
		AuthorGroup:    req.AuthorGroup,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidParams) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Error("Collection run failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("collection run failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}
