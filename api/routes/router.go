package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DanielHemmis/BggCollections/api/controllers"
	"github.com/DanielHemmis/BggCollections/api/middleware"
	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/pkg/config"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

// Deps are the collaborators the HTTP surface needs. Metrics and Ready are
// optional.
type Deps struct {
	Collections collections.Service
	Ready       map[string]controllers.Pinger
	Metrics     http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/collections", func(r chi.Router) {
		r.Get("/", controllers.CollectionsQuery(deps.Collections, logg))
		r.Post("/", controllers.CollectionsAggregate(deps.Collections, logg))
	})

	return r
}
