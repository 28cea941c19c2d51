package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// pageCSP allows the server's own pages to submit forms back to it and use
// their inline stylesheet, and nothing else.
const pageCSP = "default-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self'; " +
	"form-action 'self'; base-uri 'none'; frame-ancestors 'none'"

const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders sets security response headers on every request. JSON
// endpoints under /api/ get the stricter policy. With hsts false the
// Strict-Transport-Security header is left off, for plain-HTTP development.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("Content-Security-Policy", apiCSP)
			} else {
				h.Set("Content-Security-Policy", pageCSP)
			}

			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			// Patient records must not linger in shared caches.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
