package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"imageforge/internal/http/handlers"
	"imageforge/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger, corsOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(corsOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api/replicate", func(r chi.Router) {
		r.Post("/generate-image", app.GenerateImage)
	})

	return r
}
