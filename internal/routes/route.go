package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cablesizer/internal/auth"
	"cablesizer/internal/config"
	"cablesizer/internal/handlers"
	"cablesizer/internal/logger"
	"cablesizer/internal/metrics"
	mdlwr "cablesizer/internal/middleware"
	"cablesizer/internal/services"
	"cablesizer/internal/sizing"
	"cablesizer/internal/topology"
)

// Stores are the persistence backends behind the API.
type Stores struct {
	Projects   services.ProjectStore
	Catalogues services.CatalogueStore
}

func NewRouter(stores Stores, jwtMgr *auth.JWTManager, cfg *config.Config, logr *logger.Logger, reg *prometheus.Registry) (http.Handler, error) {
	httpMetrics, err := metrics.NewHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}
	sizingMetrics, err := metrics.NewSizingMetrics(reg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpMetrics.Middleware)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Catalogue-Name"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	engine := sizing.New(cfg.SizingOptions(), logr.Named("sizing"))
	resolver := topology.New(cfg.TopologyConfig(), logr.Named("topology"))
	recomputer := services.NewRecomputer(engine, resolver, cfg.RecomputeWorkers, sizingMetrics, logr.Named("recompute"))

	catalogueSvc := services.NewCatalogueService(stores.Catalogues, cfg.CatalogueCacheExpiry, sizingMetrics, logr.Named("catalogues"))
	projectSvc := services.NewProjectService(stores.Projects, catalogueSvc, recomputer, jwtMgr, cfg.EditTokenTTL, logr.Named("projects"))

	// edit-token middleware checks token_version against the project row
	authMW := mdlwr.NewAuthMiddleware(jwtMgr, projectSvc, logr.Named("auth"))

	sizingHandler := handlers.NewSizingHandler(recomputer, catalogueSvc, logr.Logger)
	catalogueHandler := handlers.NewCatalogueHandler(catalogueSvc, logr.Logger)
	projectHandler := handlers.NewProjectHandler(projectSvc, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/sizing", func(r chi.Router) {
			r.Post("/recompute", sizingHandler.Recompute)
			r.Post("/segment", sizingHandler.SizeSegment)
		})

		r.Route("/catalogues", func(r chi.Router) {
			r.Get("/", catalogueHandler.ListCatalogues)
			r.Post("/", catalogueHandler.UploadCatalogue)
			r.Get("/{id}", catalogueHandler.GetCatalogue)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.ListProjects)
			r.Post("/", projectHandler.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				// Public routes
				r.Get("/", projectHandler.GetProject)
				r.Get("/report", projectHandler.GetReport)

				// Protected routes
				r.Group(func(r chi.Router) {
					r.Use(authMW.ProjectAuth)
					r.Put("/segments", projectHandler.ReplaceSegments)
					r.Patch("/segments/{index}", projectHandler.UpdateSegment)
					r.Delete("/segments/{index}", projectHandler.DeleteSegment)
					r.Put("/catalogue", projectHandler.SetCatalogue)
					r.Post("/token", projectHandler.RotateToken)
					r.Delete("/", projectHandler.DeleteProject)
				})
			})
		})
	})

	return r, nil
}
