package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/middleware"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// SetupRoutes configures the routes for the application.
//
// Every token-bearing endpoint sits behind the validation gate of its token
// kind, and gates compose in order: the logout route checks the access token
// before the refresh token, the change-password route checks the access token
// before the verified status.
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()
	gates := s.authProviders.Pipeline

	r.Use(middleware.CORS(s.Config.CORS.AllowedOrigins, s.Config.CORS.AllowCredentials))
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders())
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogging())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.NotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.MethodNotAllowed(w)
	})

	r.Get(constants.HealthPath, s.health)
	r.Get(constants.VersionPath, s.version)

	r.Route(constants.AuthBasePath, func(r chi.Router) {
		r.Use(middleware.NoStore())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.limiter, constants.RateLimitCategoryAuth))
			r.Post(constants.AuthRegisterPath, s.Handlers.AuthHandler.Register)
			r.Post(constants.AuthLoginPath, s.Handlers.AuthHandler.Login)
		})

		r.With(gates.RequireAccess, gates.RequireRefresh).
			Post(constants.AuthLogoutPath, s.Handlers.AuthHandler.Logout)
		r.With(gates.RequireAccess).
			Post(constants.AuthLogoutAllPath, s.Handlers.AuthHandler.LogoutAll)
		r.With(gates.RequireRefresh).
			Post(constants.AuthRefreshPath, s.Handlers.AuthHandler.RefreshToken)

		// Password recovery is also reachable under /api/auth with the same gates
		r.With(middleware.RateLimit(s.limiter, constants.RateLimitCategoryForgotPassword)).
			Post(constants.UserForgotPasswordPath, s.Handlers.UserHandler.ForgotPassword)
		r.With(gates.RequireForgotPassword).
			Post(constants.UserResetPasswordPath, s.Handlers.UserHandler.ResetPassword)
	})

	r.Route(constants.OAuthBasePath, func(r chi.Router) {
		r.Get(constants.OAuthGooglePath, s.Handlers.OAuthHandler.GoogleCallback)
	})

	r.Route(constants.UsersBasePath, func(r chi.Router) {
		r.Use(middleware.NoStore())

		r.With(gates.RequireAccess).
			Get(constants.UserProfilePath, s.Handlers.UserHandler.GetCurrentUser)
		r.With(gates.RequireAccess).
			Post(constants.UserResendVerifyEmailPath, s.Handlers.UserHandler.ResendVerifyEmail)
		r.With(gates.RequireEmailVerifyToken).
			Post(constants.UserVerifyEmailPath, s.Handlers.UserHandler.VerifyEmail)
		r.With(middleware.RateLimit(s.limiter, constants.RateLimitCategoryForgotPassword)).
			Post(constants.UserForgotPasswordPath, s.Handlers.UserHandler.ForgotPassword)
		r.With(gates.RequireForgotPassword).
			Post(constants.UserVerifyForgotPasswordPath, s.Handlers.UserHandler.VerifyForgotPassword)
		r.With(gates.RequireForgotPassword).
			Post(constants.UserResetPasswordPath, s.Handlers.UserHandler.ResetPassword)
		r.With(gates.RequireAccess, gates.RequireVerified).
			Post(constants.UserChangePasswordPath, s.Handlers.UserHandler.ChangePassword)
	})

	r.Get(constants.APIBasePath+"/routes", s.GetAPIRoutes)

	s.router = r
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() chi.Router {
	return s.router
}

// health reports whether every backing store answers.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DBHealthCheckTimeout)
	defer cancel()

	status := make(map[string]string, len(s.healthChecks))
	healthy := true
	for _, check := range s.healthChecks {
		if err := check.checker.HealthCheck(ctx); err != nil {
			log.Error().Err(err).Str("dependency", check.name).Msg("Health check failed")
			status[check.name] = "unhealthy"
			healthy = false
			continue
		}
		status[check.name] = "healthy"
	}

	if !healthy {
		utils.Error(w, http.StatusServiceUnavailable, "service_unavailable", "Service is not healthy", status)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"version":      s.Config.App.Version,
		"dependencies": status,
	})
}

// version reports build and environment information.
func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{
		"name":        s.Config.App.Name,
		"version":     s.Config.App.Version,
		"environment": s.Config.App.Environment,
	})
}

// GetAPIRoutes lists every registered route as "METHOD pattern".
func (s *Server) GetAPIRoutes(w http.ResponseWriter, _ *http.Request) {
	var routes []string
	err := chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	if err != nil {
		utils.ErrorFromAppError(w, utils.NewInternalServerError(err))
		return
	}

	sort.Strings(routes)
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
	})
}
