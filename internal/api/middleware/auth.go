package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// HeaderAccessToken carries the raw access token. Authorization: Bearer is
// accepted as a fallback.
const HeaderAccessToken = "x-access-token"

// Auth verifies the access token and attaches the caller to the request
// context. A missing token yields domain.ErrNoToken, an unverifiable one
// domain.ErrUnauthorized.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, present := extractToken(c.Request())
			if !present {
				metrics.AccessDecisionsTotal.WithLabelValues(c.Path(), "no_token").Inc()
				return domain.ErrNoToken
			}

			caller, err := verifier.Verify(token)
			if err != nil || caller == nil {
				metrics.AccessDecisionsTotal.WithLabelValues(c.Path(), "unauthorized").Inc()
				if err == nil || !errors.Is(err, domain.ErrUnauthorized) {
					return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
				}
				return err
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithCaller(req.Context(), caller)))
			return next(c)
		}
	}
}

// extractToken reports the token and whether any token header was sent. A
// malformed Authorization header counts as present with an empty token.
func extractToken(r *http.Request) (string, bool) {
	if t := strings.TrimSpace(r.Header.Get(HeaderAccessToken)); t != "" {
		return t, true
	}

	authHeader := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}
