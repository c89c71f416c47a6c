package http

import (
	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest", middleware.WithContextTimeout(h.cfg.API.RequestTimeout))
	backtestGroup.POST("", h.runBacktest)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	req := new(dto.BacktestRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.BacktestService.RunBacktest(ctx, *req)
	if err != nil {
		return h.errorResponse(c, "run backtest", err)
	}

	resp := dto.NewSuccessResponse("Backtest completed", result)
	return c.JSON(resp.Code, resp)
}
