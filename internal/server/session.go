package server

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	sessionCookieName = "askagent_session"
	defaultSessionTTL = 7 * 24 * time.Hour
)

// signSessionID wraps a session id in a signed token so cookies cannot
// be forged to read another session's settings.
func signSessionID(id string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": id,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseSessionID(signed string, secret []byte) (string, bool) {
	parsed, err := jwt.Parse(signed,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	return sub, ok
}

// withSession ensures every request carries a session id. A missing or
// invalid cookie gets a fresh session minted on the response. The ttl
// bounds both the token and the cookie lifetime.
func withSession(secret []byte, ttl time.Duration) echo.MiddlewareFunc {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(sessionCookieName); err == nil {
				if id, ok := parseSessionID(ck.Value, secret); ok {
					c.Set("session_id", id)
					return next(c)
				}
			}
			id := uuid.NewString()
			signed, err := signSessionID(id, secret, ttl)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			c.SetCookie(&http.Cookie{
				Name:     sessionCookieName,
				Value:    signed,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(ttl),
			})
			c.Set("session_id", id)
			return next(c)
		}
	}
}

func sessionID(c echo.Context) string {
	if v, ok := c.Get("session_id").(string); ok {
		return v
	}
	return ""
}
