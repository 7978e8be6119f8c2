package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"SignalPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a 500 envelope and logs the stack.
func Recover(lgr *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					lgr.Error("HTTP handler panic",
						logger.String("route", c.Path()),
						logger.String("panic", fmt.Sprint(r)),
						logger.String("stack", string(debug.Stack())))
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": http.StatusText(http.StatusInternalServerError),
					})
				}
			}()
			return next(c)
		}
	}
}
