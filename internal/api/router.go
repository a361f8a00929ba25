package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"

	"job_alert_service/internal/api/handler"
	"job_alert_service/internal/api/middleware"
	"job_alert_service/internal/common"
	"job_alert_service/internal/platform/logger"
)

const greeting = "Hello, you've reached the job-alert-service. Monitoring jobs for status changes."

// RouterDeps groups what the HTTP layer needs. TokenAuth is nil when the
// admin routes are open.
type RouterDeps struct {
	Delta     *handler.DeltaHandler
	Alerts    *handler.AlertHandler
	TokenAuth *jwtauth.JWTAuth
	Timeout   time.Duration
	Log       *zap.SugaredLogger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logger.RequestLogger(deps.Log))
	r.Use(chiMiddleware.Recoverer)
	if deps.Timeout > 0 {
		r.Use(chiMiddleware.Timeout(deps.Timeout))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithText(w, http.StatusOK, greeting)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithText(w, http.StatusOK, "OK")
	})

	// The delta-notifier has no credentials.
	deps.Delta.RegisterRoutes(r)

	r.Group(func(admin chi.Router) {
		if deps.TokenAuth != nil {
			admin.Use(jwtauth.Verifier(deps.TokenAuth))
			admin.Use(middleware.Authenticator)
			admin.Use(middleware.AdminOnly)
		}
		deps.Alerts.RegisterRoutes(admin)
	})

	return r
}
