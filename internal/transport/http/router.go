package http

import (
	"net/http"

	"github.com/campusxchange/swapkr/internal/config"
	"github.com/campusxchange/swapkr/internal/pkg/logger"
	"github.com/campusxchange/swapkr/internal/transport/http/handler"
	appmiddleware "github.com/campusxchange/swapkr/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. The returned stop
// function releases the rate limiter's background goroutine.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	log := logger.OrNop(deps.Logger)

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Authenticate(deps.Verifier))

	// 5 requests/second, burst of 10, applied to the credential endpoints.
	authRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.DB)
	authH := handler.NewAuthHandler(deps.Accounts)
	listingH := handler.NewListingHandler(deps.Listings)
	requestH := handler.NewRequestHandler(deps.Requests)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	adminH := handler.NewAdminHandler(deps.Moderation, deps.Policy)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Check)

		r.Route("/auth", func(r chi.Router) {
			r.With(authRL.Limit).Post("/register", authH.Register)
			r.With(authRL.Limit).Post("/verify-otp", authH.VerifyOTP)
			r.With(authRL.Limit).Post("/resend-otp", authH.ResendOTP)
			r.With(authRL.Limit).Post("/login", authH.Login)
			r.With(appmiddleware.RequireUser).Get("/me", authH.Me)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", listingH.List)
			r.With(appmiddleware.RequireUser).Get("/mine", listingH.Mine)
			r.With(appmiddleware.RequireUser).Post("/", listingH.Create)
			r.Get("/{id}", listingH.Get)
			r.With(appmiddleware.RequireUser).Delete("/{id}", listingH.Delete)
			r.Get("/{id}/image", listingH.ImageURL)
			r.With(appmiddleware.RequireUser).Post("/{id}/image", listingH.UploadImage)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requestH.List)
			r.With(appmiddleware.RequireUser).Get("/mine", requestH.Mine)
			r.With(appmiddleware.RequireUser).Post("/", requestH.Create)
			r.Get("/{id}", requestH.Get)
			r.With(appmiddleware.RequireUser).Delete("/{id}", requestH.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireUser)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/check", adminH.Check)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAdmin(deps.Policy))

				r.Get("/pending", adminH.Pending)
				r.Put("/items/{id}/approve", adminH.ApproveItem)
				r.Delete("/items/{id}", adminH.DeleteItem)
				r.Put("/requests/{id}/approve", adminH.ApproveRequest)
				r.Delete("/requests/{id}", adminH.DeleteRequest)
				r.Get("/users", adminH.ListUsers)
				r.Delete("/users/{id}", adminH.DeleteUser)
			})
		})
	})

	return r, authRL.Stop
}
