package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/pribylovaa/accounts-service/internal/http/handlers"
	"github.com/pribylovaa/accounts-service/internal/http/middleware"
)

// Service — всё, что нужно роутеру от бизнес-логики:
// операции обработчиков и проверка личности для guard'а.
type Service interface {
	handlers.AccountService
	middleware.IdentityVerifier
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger      *slog.Logger
	Timeout     time.Duration
	BasePath    string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	CORSOrigins []string
	Handlers    handlers.Options
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте + запись на запрос
		middleware.Metrics(),            // счётчики по шаблону маршрута
		middleware.Recover(),            // паника -> 500 в едином конверте
	)
	if len(opts.CORSOrigins) > 0 {
		root.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
		}).Handler)
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc, opts.Handlers)
	auth := middleware.Authenticate(svc)

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, auth)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, auth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Middleware) {
	r.Route("/users", func(r chi.Router) {
		// public
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)

		// guarded
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/current-user", h.CurrentUser)
			r.Patch("/update-account", h.UpdateAccount)
			r.Patch("/avatar", h.UpdateAvatar)
			r.Patch("/cover-image", h.UpdateCoverImage)
		})
	})
}
