package http

import (
	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/middleware"
	"golang-algotrade/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupOptimize(base *echo.Group) {
	optimizeGroup := base.Group("/optimize", middleware.WithContextTimeout(h.cfg.API.OptimizeTimeout))
	optimizeGroup.POST("", h.runOptimize)
}

func (h *HttpAPIHandler) runOptimize(c echo.Context) error {
	// GA fields missing from the body keep their configured defaults.
	req := &dto.OptimizeRequest{GA: utils.ToPointer(h.service.OptimizerService.DefaultGAConfig())}
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.OptimizerService.Optimize(ctx, *req)
	if err != nil {
		return h.errorResponse(c, "run optimization", err)
	}

	message := "Optimization completed"
	if result.Cancelled {
		message = "Optimization cancelled, returning best result so far"
	}
	resp := dto.NewSuccessResponse(message, result)
	return c.JSON(resp.Code, resp)
}
