package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// WithContextTimeout bounds the request context of every handler by d.
// Handlers see ctx.Done() when the deadline passes; the response is still
// written by the handler.
func WithContextTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
