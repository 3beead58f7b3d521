package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ctxRequestID is where handlers and the telemetry middleware read the id
// assigned to the current request.
const ctxRequestID = "request_id"

// RequestID tags every request with an id, honoring one supplied by the
// caller. The id is echoed on the response so chat clients can quote it when
// reporting a failed turn.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.Set(ctxRequestID, id)

			return next(c)
		}
	}
}
