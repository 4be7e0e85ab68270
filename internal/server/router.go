package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kbforge/curatex/internal/api"
	"github.com/kbforge/curatex/internal/api/handlers"
	"github.com/kbforge/curatex/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	CurationHandler *handlers.CurationHandler
	AuthHandler     *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", cfg.CurationHandler.Add)
			r.Get("/", cfg.CurationHandler.ListPending)
			r.Get("/history", cfg.CurationHandler.ListHistory)
			r.Post("/bulk/approve", cfg.CurationHandler.BulkApprove)
			r.Post("/bulk/reject", cfg.CurationHandler.BulkReject)
			r.Get("/{id}", cfg.CurationHandler.Get)
			r.Put("/{id}", cfg.CurationHandler.Edit)
			r.Post("/{id}/approve", cfg.CurationHandler.Approve)
			r.Post("/{id}/reject", cfg.CurationHandler.Reject)
			r.Post("/{id}/scan", cfg.CurationHandler.Scan)
		})
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Get("/tenants", cfg.AuthHandler.ListTenants)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)
	r.Get("/apikeys", cfg.AuthHandler.ListAPIKeys)
	r.Delete("/apikeys/{id}", cfg.AuthHandler.RevokeAPIKey)

	return r
}
