package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/daywindow/internal/models"
)

// AuthRequired resolves the session cookie into c.Locals(contextUserKey). In
// local mode every request is the demo user.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	if handler.localMode {
		c.Locals(contextUserKey, &models.User{ID: models.DemoUserID})
		return c.Next()
	}

	user, err := handler.authenticateRequest(c.UserContext(), strings.TrimSpace(c.Cookies(authCookieName)))
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	c.Locals(contextUserKey, user)
	return c.Next()
}

func (handler *Handler) authenticateRequest(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, errors.New("missing auth cookie")
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return handler.secretKey, nil
	}, jwt.WithTimeFunc(handler.clock), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	user, err := handler.authService.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
