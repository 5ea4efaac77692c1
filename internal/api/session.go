package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/daywindow/internal/models"
)

// setAuthCookie issues a signed session for user. Remembered sessions get a
// persistent cookie; the others end with the browser session.
func (handler *Handler) setAuthCookie(c *fiber.Ctx, user *models.User, rememberMe bool) error {
	ttl := sessionTTL(rememberMe)
	token, err := handler.signSession(user.ID, ttl)
	if err != nil {
		return err
	}

	var expires time.Time
	if rememberMe {
		expires = handler.clock().Add(ttl)
	}
	c.Cookie(handler.sessionCookie(token, expires))
	return nil
}

func (handler *Handler) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(handler.sessionCookie("", handler.clock().Add(-time.Hour)))
}

func (handler *Handler) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (handler *Handler) signSession(userID uint, ttl time.Duration) (string, error) {
	issuedAt := handler.clock()
	claims := authClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(handler.secretKey)
}

func sessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return rememberAuthTokenTTL
	}
	return defaultAuthTokenTTL
}
