package utils

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"perdecomp/cmd/internal/utils/apierror"
)

// GetCallerFromContext returns the token data stored by the auth middleware.
func GetCallerFromContext(c echo.Context) (*TokenData, apierror.ErrorResponse) {
	val := c.Get("caller")
	if val == nil {
		log.Warnf("route %s attempted to read nil caller from context", c.Request().URL)
		return nil, apierror.UnauthorizedError
	}

	caller, ok := val.(*TokenData)
	if !ok {
		log.Warnf("expected token data at 'caller' context key, got %v", val)
		return nil, apierror.InternalServerError
	}
	return caller, nil
}
