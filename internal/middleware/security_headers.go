package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// contentSecurityPolicy allows media from the page itself plus the given
// storage origins, which serve public and presigned object URLs
func contentSecurityPolicy(mediaOrigins []string) string {
	media := strings.Join(append([]string{"'self'", "data:", "blob:"}, mediaOrigins...), " ")
	return "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline' https://cdn.tailwindcss.com https://unpkg.com; " +
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
		"img-src " + media + "; " +
		"media-src " + media + "; " +
		"font-src 'self' https://fonts.gstatic.com; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"
}

func SecurityHeaders(mediaOrigins ...string) echo.MiddlewareFunc {
	csp := contentSecurityPolicy(mediaOrigins)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			headers := c.Response().Header()
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// Guests may pick photos straight from the camera
			headers.Set("Permissions-Policy", "geolocation=(), microphone=()")
			headers.Set("Content-Security-Policy", csp)

			if isSecureRequest(c) {
				headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}

func isSecureRequest(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https")
}
