package middleware

import (
	"net/http"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// NewAuthMiddleware rejects requests without a valid service token and stores
// the token data under the "caller" key.
func NewAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenData, err := utils.ParseTokenDataCtx(c)
			if err != nil {
				log.Debugf("rejected token on %s: %v", c.Path(), err)
				return c.JSON(http.StatusUnauthorized, apierror.UnauthorizedError)
			}

			c.Set("caller", tokenData)
			return next(c)
		}
	}
}
