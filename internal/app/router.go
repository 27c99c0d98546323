package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lorrybill/lorrybill/internal/invoicing"
	"github.com/lorrybill/lorrybill/internal/masterdata"
	"github.com/lorrybill/lorrybill/internal/observability"
	"github.com/lorrybill/lorrybill/internal/platform/httpx"
	"github.com/lorrybill/lorrybill/internal/transactions"
	"github.com/lorrybill/lorrybill/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Sessions            SessionResolver
	MasterDataHandler   *masterdata.Handler
	TransactionsHandler *transactions.Handler
	InvoicingHandler    *invoicing.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	cookie := ""
	if params.Config != nil {
		cookie = params.Config.SessionCookie
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOwner(params.Sessions, cookie, params.Logger))
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.TransactionsHandler != nil {
			r.Route("/transactions", params.TransactionsHandler.MountRoutes)
		}
		if params.InvoicingHandler != nil {
			r.Route("/invoices", params.InvoicingHandler.MountRoutes)
		}
		// Unknown API paths still pass through RequireOwner.
		r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no such endpoint")
		})
	})

	return r
}
