package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/damacus/wedding-album/internal/utils"
)

// CSRF issues a token cookie on safe requests and requires the token in the
// X-CSRF-Token header on everything else. Paths in skip bypass it entirely.
func CSRF(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return echoMiddleware.CSRFWithConfig(echoMiddleware.CSRFConfig{
		TokenLookup:    "header:" + utils.CSRFHeader,
		ContextKey:     utils.ContextKeyCSRF,
		CookieName:     utils.CSRFCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
		Skipper: func(c echo.Context) bool {
			return skipped[c.Path()]
		},
	})
}
