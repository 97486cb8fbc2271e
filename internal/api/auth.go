package api

import (
	echo "github.com/labstack/echo/v5"
)

// extractUser resolves the calling tenant from oauth2-proxy headers,
// adapted from pkg/api/auth.go's extractAuthor (priority order and
// fallback sentinel kept identical, renamed for tabletalk's per-tenant
// file/conversation ownership model rather than an audit "author" field).
func extractUser(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}
