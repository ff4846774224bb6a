package routes

import (
	"net/http"

	"github.com/aaroha-fest/sargam-portal/handlers"
	"github.com/aaroha-fest/sargam-portal/middleware"
	"github.com/aaroha-fest/sargam-portal/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	AuthHandler         *handlers.AuthHandler
	RegistrationHandler *handlers.RegistrationHandler
	RoleResolver        *services.RoleResolver
	JWTSecret           []byte
	CORSAllowedOrigins  []string
}

func SetupRoutes(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.JWTSecret, cfg.RoleResolver)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"message":"Server is running"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", cfg.AuthHandler.SignUp)
		r.Post("/signin", cfg.AuthHandler.SignIn)
		r.Post("/google", cfg.AuthHandler.GoogleSignIn)
		r.Get("/google/url", cfg.AuthHandler.GoogleAuthURL)
		r.Post("/forgot-password", cfg.AuthHandler.ForgotPassword)
		r.Post("/refresh-token", cfg.AuthHandler.RefreshToken)
		r.Post("/admin/setup", cfg.AuthHandler.SetupAdmin)

		// Reset by token is public; reset by session requires auth.
		// The handler branches on the presence of a token.
		r.Post("/reset-password", cfg.AuthHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/signout", cfg.AuthHandler.SignOut)
			r.Get("/profile", cfg.AuthHandler.GetProfile)
			r.Put("/profile", cfg.AuthHandler.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/admin/create", cfg.AuthHandler.CreateAdmin)
				r.Get("/admin/users", cfg.AuthHandler.ListUsers)
			})
		})
	})

	r.Route("/api/registrations", func(r chi.Router) {
		r.Get("/event-info", cfg.RegistrationHandler.EventInfo)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/register", cfg.RegistrationHandler.Create)
			r.Get("/my-registrations", cfg.RegistrationHandler.MyRegistrations)
			r.Get("/{id}", cfg.RegistrationHandler.GetByID)
			r.Put("/{id}", cfg.RegistrationHandler.Update)
			r.Post("/{id}/payment-proof", cfg.RegistrationHandler.UploadPaymentProof)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", cfg.RegistrationHandler.List)
				r.Get("/stats/overview", cfg.RegistrationHandler.Stats)
				r.Patch("/{id}/payment", cfg.RegistrationHandler.UpdatePaymentStatus)
				r.Delete("/{id}", cfg.RegistrationHandler.Delete)
			})
		})
	})

	return r
}
