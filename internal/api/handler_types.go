package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/daywindow/internal/services"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAuthTokenTTL  = 7 * 24 * time.Hour
	rememberAuthTokenTTL = 30 * 24 * time.Hour

	loginAttemptLimit  = 8
	loginAttemptWindow = 15 * time.Minute
)

// Options wires the handler to its stores. Users may be nil only in local
// mode, where every request acts as the demo user.
type Options struct {
	SecretKey      string
	CookieSecure   bool
	LocalMode      bool
	Users          services.AuthUserRepository
	Preferences    services.PreferencesRepository
	Tasks          services.TaskRepository
	Deals          *services.DealsService
	Clock          func() time.Time
	TracerProvider trace.TracerProvider
}

type Handler struct {
	secretKey          []byte
	cookieSecure       bool
	localMode          bool
	clock              func() time.Time
	authService        *services.AuthService
	preferencesService *services.PreferencesService
	taskService        *services.TaskService
	dealsService       *services.DealsService
	loginLimiter       *attemptLimiter
}

type authClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}
