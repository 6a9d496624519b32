package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cliptube/identity-api/internal/application/registration"
	"github.com/cliptube/identity-api/internal/application/session"
	"github.com/cliptube/identity-api/internal/application/tweet"
	userapp "github.com/cliptube/identity-api/internal/application/user"
	"github.com/cliptube/identity-api/internal/config"
	"github.com/cliptube/identity-api/internal/metrics"
	"github.com/cliptube/identity-api/internal/transport/http/handler"
	appmiddleware "github.com/cliptube/identity-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)

	var collector metrics.Collector = metrics.Nop{}
	if deps.Metrics != nil {
		collector = deps.Metrics
	}

	regSvc := registration.NewService(registration.ServiceDeps{
		UserRepo:            deps.UserRepo,
		Media:               deps.S3Store,
		Metrics:             collector,
		CompensationTimeout: cfg.CompensationTimeout,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo: deps.UserRepo,
		Tokens:   deps.JWTProvider,
		Metrics:  collector,
	})
	userSvc := userapp.NewService(userapp.ServiceDeps{
		UserRepo: deps.UserRepo,
		Media:    deps.S3Store,
	})
	tweetSvc := tweet.NewService(tweet.ServiceDeps{TweetRepo: deps.TweetRepo})

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(regSvc, userSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, cfg)
	tweetH := handler.NewTweetHandler(tweetSvc)

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check", healthH.Ping)
		r.Post("/users/register", userH.Register)
		r.Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/me", userH.UpdateAccount)
			r.Patch("/users/me/avatar", userH.UpdateAvatar)
			r.Patch("/users/me/cover", userH.UpdateCover)
			r.Patch("/users/me/password", userH.ChangePassword)

			r.Post("/tweets", tweetH.Create)
			r.Get("/tweets", tweetH.ListMine)
			r.Put("/tweets/{id}", tweetH.Update)
			r.Delete("/tweets/{id}", tweetH.Delete)
		})
	})

	return r
}
