package api

import (
	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

type MarketHandler struct {
	logger *logger.Logger
	market dservice.MarketData
}

func NewMarketHandler(lgr *logger.Logger, market dservice.MarketData) *MarketHandler {
	return &MarketHandler{logger: lgr, market: market}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/ticker", h.Ticker)
}

func (h *MarketHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	candles, err := h.market.Candles(c.Request().Context(), tf)
	if err != nil {
		h.logger.Error("Candles failed", logger.String("tf", string(tf)), logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, candles)
}

func (h *MarketHandler) Ticker(c echo.Context) error {
	t, err := h.market.Ticker(c.Request().Context())
	if err != nil {
		h.logger.Error("Ticker failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, t)
}
