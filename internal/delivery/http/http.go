package http

import (
	"context"
	"errors"

	"golang-algotrade/config"
	"golang-algotrade/internal/dto"
	"golang-algotrade/internal/engine"
	"golang-algotrade/internal/service"
	"golang-algotrade/internal/strategy"
	"golang-algotrade/pkg/decoder"
	"golang-algotrade/pkg/logger"
	"golang-algotrade/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

type HttpAPIHandler struct {
	ctx       context.Context
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, cfg *config.Config, log *logger.Logger, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.Use(echoMiddleware.Recover())
	if h.cfg.API.MaxBody != "" {
		h.echo.Use(echoMiddleware.BodyLimit(h.cfg.API.MaxBody))
	}

	base := h.echo.Group("/api")
	v1 := base.Group("/v1", middleware.NewRateLimiterMiddleware(h.cfg.API.MaxRequestPerSec, h.cfg.API.RateLimitExpire))
	h.SetupBacktest(v1)
	h.SetupOptimize(v1)
}

// errorResponse maps input problems to 422 and everything else to 500.
func (h *HttpAPIHandler) errorResponse(c echo.Context, action string, err error) error {
	inputErrors := []error{
		dto.ErrEmptySeries, dto.ErrTimeOrder, dto.ErrBarShape,
		engine.ErrInvalidParams, engine.ErrExitTable, engine.ErrSignalLength,
		strategy.ErrInvalidCondition, strategy.ErrUnknownIndicator, decoder.ErrPath,
		service.ErrInvalidParamRange,
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			resp := dto.NewUnprocessableResponse(err.Error())
			return c.JSON(resp.Code, resp)
		}
	}

	var validationErrs goValidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		resp := dto.NewUnprocessableResponse(err.Error())
		return c.JSON(resp.Code, resp)
	}

	h.log.ErrorContext(c.Request().Context(), "Request failed", logger.StringField("action", action), logger.ErrorField(err))
	resp := dto.NewInternalErrorResponse("failed to " + action)
	return c.JSON(resp.Code, resp)
}

func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) *dto.BaseResponse {
	if err := c.Bind(req); err != nil {
		return dto.NewBadRequestResponse("invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

// requestContext joins the request context with the server's lifetime.
func (h *HttpAPIHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Request().Context())
	stop := context.AfterFunc(h.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
