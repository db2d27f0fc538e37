// Package www serves the engine's JSON API and the Prometheus endpoint.
package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tradecore/engine"
	"tradecore/logging"
)

type Handlers struct {
	engine *engine.Engine
	log    *zap.SugaredLogger
}

func NewRouter(eng *engine.Engine, log *zap.Logger) http.Handler {
	h := &Handlers{engine: eng, log: logging.Named(log, "www")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Handle("/metrics", promhttp.HandlerFor(eng.Recorder().Registry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/summary", h.apiSummary)
		r.Get("/summary/orders", h.apiOrdersByStatus)

		r.Get("/nodes", h.apiListNodes)
		r.Get("/nodes/{id}", h.apiGetNode)
		r.Put("/nodes/{id}/status", h.apiSetNodeStatus)
		r.Get("/nodestate", h.apiNodeState)

		r.Get("/orders", h.apiListOrders)
		r.Post("/orders", h.apiCreateOrder)
		r.Get("/orders/{id}", h.apiGetOrder)
		r.Put("/orders/{id}/status", h.apiUpdateOrderStatus)

		r.Get("/agreements", h.apiListAgreements)
		r.Post("/agreements", h.apiCreateAgreement)
		r.Get("/agreements/{id}", h.apiGetAgreement)
		r.Delete("/agreements/{id}", h.apiCancelAgreement)

		r.Get("/audit", h.apiAuditLog)
		r.Get("/audit/{type}/{id}", h.apiEntityAudit)
	})

	return r
}
