package middleware

import (
	"time"

	"SignalPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request; 5xx at error level, 4xx at warn.
func RequestLogging(lgr *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.String("ip", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("latency", time.Since(start)),
				logger.Int64("bytes", c.Response().Size),
			}
			switch {
			case status >= 500:
				lgr.Error("HTTP request failed", append(fields, logger.Error(err))...)
			case status >= 400:
				lgr.Warn("HTTP request rejected", fields...)
			default:
				lgr.Info("HTTP request", fields...)
			}
			return nil
		}
	}
}
