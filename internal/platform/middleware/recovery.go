package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// Recovery turns a handler panic into a 500 response. FHIR routes answer
// with an OperationOutcome so ClaimResponse clients always read the same
// resource shape, even on a crash.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					rid, _ := c.Get("request_id").(string)
					logger.Error().
						Str("request_id", rid).
						Str("path", c.Request().URL.Path).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					if c.Response().Committed {
						return
					}
					if strings.HasPrefix(c.Request().URL.Path, "/fhir/") {
						err = c.JSON(http.StatusInternalServerError,
							fhir.NewOperationOutcome("fatal", "exception", "internal server error"))
						return
					}
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
