package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var errTimeout = echo.NewHTTPError(http.StatusGatewayTimeout, "request exceeded the allowed time")

// RequestTimeout puts a deadline on each request context and answers 504
// when the handler overruns it. Paths under any of the exempt prefixes,
// such as gateway broadcasts paced over minutes, run without a deadline.
func RequestTimeout(timeout time.Duration, exempt ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range exempt {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return errTimeout
				}
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return errTimeout
				}
				return ctx.Err()
			}
		}
	}
}
